// internal/api/v2/compare.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initCompareRoutes() {
	c.Group.GET("/compare", c.GetCompare, c.SessionMiddleware())
}

// GetCompare handles GET /api/v2/compare. Every configured dataset is loaded
// through the session cache and compared, optionally filtered by species.
func (c *Controller) GetCompare(ctx echo.Context) error {
	datasets, err := c.loadAll(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load datasets", statusForError(err))
	}

	res, err := c.Engine.Compare(datasets, parseSpecies(ctx))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compare datasets", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, res)
}
