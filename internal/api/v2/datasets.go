// internal/api/v2/datasets.go
package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/loader"
	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
	"github.com/tphakala/birdobs/internal/views"
)

// HeaderSessionID carries the dashboard session identifier in both directions
const HeaderSessionID = "X-Session-ID"

// CompareDataset is the pseudo dataset selecting the cross-dataset comparison
const CompareDataset = "compare"

// context key of the session Loader
const loaderKey = "session_loader"

// DatasetsResponse lists the selectable datasets
type DatasetsResponse struct {
	Datasets []string `json:"datasets"`
	Compare  string   `json:"compare"`
}

// SpeciesResponse lists the distinct species of a dataset
type SpeciesResponse struct {
	Dataset string   `json:"dataset"`
	Species []string `json:"species"`
	Count   int      `json:"count"`
}

// InvalidateResponse confirms a cache invalidation
type InvalidateResponse struct {
	Dataset   string `json:"dataset"`
	SessionID string `json:"session_id"`
	Cached    bool   `json:"cached"`
}

func (c *Controller) initDatasetRoutes() {
	c.Group.GET("/datasets", c.GetDatasets)
	c.Group.GET("/datasets/:dataset/species", c.GetSpecies, c.SessionMiddleware())
	c.Group.POST("/datasets/:dataset/invalidate", c.InvalidateDataset, c.SessionMiddleware())
}

// SessionMiddleware resolves the X-Session-ID header to the session's Loader,
// creating a session when the header is absent or unknown. The effective id
// is echoed in the response header.
func (c *Controller) SessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, l := c.Sessions.Get(ctx.Request().Header.Get(HeaderSessionID))
			ctx.Response().Header().Set(HeaderSessionID, id)
			ctx.Set(loaderKey, l)
			return next(ctx)
		}
	}
}

// sessionLoader returns the request's Loader. Handlers called without the
// session middleware, as in tests, get a fresh session.
func (c *Controller) sessionLoader(ctx echo.Context) *loader.Loader {
	if l, ok := ctx.Get(loaderKey).(*loader.Loader); ok {
		return l
	}
	id, l := c.Sessions.Get(ctx.Request().Header.Get(HeaderSessionID))
	ctx.Response().Header().Set(HeaderSessionID, id)
	ctx.Set(loaderKey, l)
	return l
}

// GetDatasets handles GET /api/v2/datasets
func (c *Controller) GetDatasets(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, DatasetsResponse{
		Datasets: slices.Concat(c.DS.Datasets(), []string{CompareDataset}),
		Compare:  CompareDataset,
	})
}

// GetSpecies handles GET /api/v2/datasets/:dataset/species
func (c *Controller) GetSpecies(ctx echo.Context) error {
	dataset := ctx.Param("dataset")

	var t *table.Table
	var err error
	if isCompare(dataset) {
		t, err = c.combinedTable(ctx)
	} else {
		t, err = c.loadDataset(ctx, dataset)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load dataset", statusForError(err))
	}

	species, err := pipeline.DistinctValues(t, pipeline.ColCommonName)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset has no species column", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, SpeciesResponse{
		Dataset: dataset,
		Species: species,
		Count:   len(species),
	})
}

// InvalidateDataset handles POST /api/v2/datasets/:dataset/invalidate. It drops
// the dataset from the caller's session cache; "compare" flushes the session.
func (c *Controller) InvalidateDataset(ctx echo.Context) error {
	dataset := ctx.Param("dataset")
	l := c.sessionLoader(ctx)

	if isCompare(dataset) {
		l.Flush()
		return ctx.JSON(http.StatusOK, InvalidateResponse{
			Dataset:   CompareDataset,
			SessionID: ctx.Response().Header().Get(HeaderSessionID),
		})
	}

	canonical, ok := c.Settings.HasDataset(dataset)
	if !ok {
		return c.HandleError(ctx, unknownDataset(dataset), "Unknown dataset", http.StatusNotFound)
	}

	l.Invalidate(canonical)
	return ctx.JSON(http.StatusOK, InvalidateResponse{
		Dataset:   canonical,
		SessionID: ctx.Response().Header().Get(HeaderSessionID),
		Cached:    l.Cached(canonical),
	})
}

// loadDataset returns the session's cached table for dataset
func (c *Controller) loadDataset(ctx echo.Context, dataset string) (*table.Table, error) {
	canonical, ok := c.Settings.HasDataset(dataset)
	if !ok {
		return nil, unknownDataset(dataset)
	}
	return c.sessionLoader(ctx).Get(ctx.Request().Context(), canonical)
}

// loadAll returns every configured dataset in configuration order
func (c *Controller) loadAll(ctx echo.Context) ([]views.Dataset, error) {
	names := c.DS.Datasets()
	out := make([]views.Dataset, 0, len(names))
	for _, name := range names {
		t, err := c.loadDataset(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, views.Dataset{Name: name, Table: t})
	}
	return out, nil
}

// combinedTable stacks all datasets, used for the species picker of the comparison
func (c *Controller) combinedTable(ctx echo.Context) (*table.Table, error) {
	datasets, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*table.Table, len(datasets))
	for i, d := range datasets {
		tables[i] = d.Table
	}
	return pipeline.Concat(tables...)
}

// parseSpecies reads the species filter from repeated and comma-separated
// "species" query parameters. Blank entries and duplicates are dropped.
func parseSpecies(ctx echo.Context) []string {
	var species []string
	for _, raw := range ctx.QueryParams()["species"] {
		for name := range strings.SplitSeq(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" && !slices.Contains(species, name) {
				species = append(species, name)
			}
		}
	}
	return species
}

func isCompare(dataset string) bool {
	return strings.EqualFold(dataset, CompareDataset)
}

func unknownDataset(dataset string) error {
	return errors.Newf("unknown dataset %q", dataset).
		Component("api").
		Category(errors.CategoryNotFound).
		DatasetContext(dataset).
		Build()
}
