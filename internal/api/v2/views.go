// internal/api/v2/views.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/views"
)

// ViewInfo describes one selectable insight view
type ViewInfo struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Tables []string `json:"tables"`
}

// AvailabilityResponse reports which views a dataset can serve
type AvailabilityResponse struct {
	Dataset string                   `json:"dataset"`
	Views   []views.ViewAvailability `json:"views"`
}

func (c *Controller) initViewRoutes() {
	c.Group.GET("/views", c.ListViews)
	c.Group.GET("/datasets/:dataset/overview", c.GetOverview, c.SessionMiddleware())
	c.Group.GET("/datasets/:dataset/views", c.GetViewAvailability, c.SessionMiddleware())
	c.Group.GET("/datasets/:dataset/views/:view", c.GetView, c.SessionMiddleware())
}

// ListViews handles GET /api/v2/views
func (c *Controller) ListViews(ctx echo.Context) error {
	defs := views.List()
	out := make([]ViewInfo, 0, len(defs))
	for _, def := range defs {
		info := ViewInfo{ID: def.ID, Title: def.Title}
		for _, ts := range def.Tables {
			info.Tables = append(info.Tables, ts.Name)
		}
		out = append(out, info)
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetOverview handles GET /api/v2/datasets/:dataset/overview. The compare
// pseudo dataset answers with the comparison instead.
func (c *Controller) GetOverview(ctx echo.Context) error {
	dataset := ctx.Param("dataset")
	if isCompare(dataset) {
		return c.GetCompare(ctx)
	}

	t, err := c.loadDataset(ctx, dataset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load dataset", statusForError(err))
	}

	res, err := c.Engine.Overview(t, parseSpecies(ctx))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute overview", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, res)
}

// GetViewAvailability handles GET /api/v2/datasets/:dataset/views
func (c *Controller) GetViewAvailability(ctx echo.Context) error {
	dataset := ctx.Param("dataset")

	t, err := c.loadDataset(ctx, dataset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load dataset", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, AvailabilityResponse{
		Dataset: dataset,
		Views:   views.Availability(t),
	})
}

// GetView handles GET /api/v2/datasets/:dataset/views/:view
func (c *Controller) GetView(ctx echo.Context) error {
	dataset := ctx.Param("dataset")
	view := ctx.Param("view")

	switch {
	case isCompare(dataset) || view == views.Compare:
		return c.GetCompare(ctx)
	case view == views.Overview:
		return c.GetOverview(ctx)
	}
	if _, ok := views.Lookup(view); !ok {
		return c.HandleError(ctx, unknownView(view), "Unknown view", http.StatusNotFound)
	}

	t, err := c.loadDataset(ctx, dataset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load dataset", statusForError(err))
	}

	res, err := c.Engine.Compute(view, t, parseSpecies(ctx))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute view", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, res)
}

func unknownView(view string) error {
	return errors.Newf("unknown view %q", view).
		Component("api").
		Category(errors.CategoryNotFound).
		Context("view", view).
		Build()
}
