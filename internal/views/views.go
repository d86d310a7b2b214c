// Package views turns a raw observation table into the named summary tables
// of the dashboard's insight views, the overview panel and the dataset
// comparison.
package views

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
)

// View identifiers
const (
	Temporal     = "temporal"
	Spatial      = "spatial"
	Species      = "species"
	Environment  = "environment"
	Behavior     = "behavior"
	Observers    = "observers"
	Conservation = "conservation"

	// Overview and Compare are not selectable insights but share the result shape
	Overview = "overview"
	Compare  = "compare"
)

// Result is the output of one view computation
type Result struct {
	View    string                      `json:"view"`
	Title   string                      `json:"title"`
	Tables  map[string]*table.Table     `json:"tables"`
	Notices []string                    `json:"notices"`
	Dropped map[string]*pipeline.Report `json:"dropped,omitempty"` // values excluded per table
	Metrics *pipeline.Metrics           `json:"metrics,omitempty"` // overview only

	order []string
}

func newResult(id, title string) *Result {
	return &Result{
		View:    id,
		Title:   title,
		Tables:  make(map[string]*table.Table),
		Notices: []string{},
		Dropped: make(map[string]*pipeline.Report),
	}
}

// TableNames returns the names of the produced tables in definition order
func (r *Result) TableNames() []string {
	return slices.Clone(r.order)
}

func (r *Result) add(name string, t *table.Table, rep *pipeline.Report) {
	r.Tables[name] = t
	r.order = append(r.order, name)
	if !rep.Empty() {
		r.Dropped[name] = rep
	}
}

// Engine computes views with the configured sizes
type Engine struct {
	settings conf.ViewSettings
	metrics  *metrics.ViewMetrics
	log      logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithMetrics records computations and dropped values
func WithMetrics(m *metrics.ViewMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the module logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine. Non-positive sizes fall back to the defaults.
func NewEngine(settings conf.ViewSettings, opts ...Option) *Engine {
	if settings.TopPlots < 1 {
		settings.TopPlots = 10
	}
	if settings.TopSpecies < 1 {
		settings.TopSpecies = 20
	}
	if settings.HistogramBins < 1 {
		settings.HistogramBins = 30
	}
	e := &Engine{settings: settings}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module("views")
	}
	return e
}

// unavailable formats the notice for a table that cannot be derived
func unavailable(title string, missing []string) string {
	return fmt.Sprintf("%s: data unavailable (missing columns: %s)", title, strings.Join(missing, ", "))
}

// Compute derives the tables of view id from t after applying the species filter
func (e *Engine) Compute(id string, t *table.Table, species []string) (*Result, error) {
	def, ok := Lookup(id)
	if !ok {
		return nil, errors.Newf("unknown view %q", id).
			Component("views").
			Category(errors.CategoryNotFound).
			Context("view", id).
			Build()
	}

	start := time.Now()
	res, err := e.compute(def, t, species)
	e.finish(def.ID, res, err, start)
	return res, err
}

func (e *Engine) compute(def Definition, t *table.Table, species []string) (*Result, error) {
	filtered, err := filterSpecies(t, species)
	if err != nil {
		return nil, err
	}

	res := newResult(def.ID, def.Title)
	s := newState(filtered)
	for _, spec := range def.Tables {
		if missing := spec.missing(filtered); len(missing) > 0 {
			res.Notices = append(res.Notices, unavailable(spec.Title, missing))
			continue
		}
		rep := pipeline.NewReport()
		out, notice, err := spec.build(e, s, rep)
		if err != nil {
			if errors.Is(err, pipeline.ErrMissingColumn) {
				res.Notices = append(res.Notices, fmt.Sprintf("%s: data unavailable (%v)", spec.Title, err))
				continue
			}
			return nil, fmt.Errorf("%s/%s: %w", def.ID, spec.Name, err)
		}
		if notice != "" {
			res.Notices = append(res.Notices, notice)
		}
		res.add(spec.Name, out, rep)
	}
	return res, nil
}

func filterSpecies(t *table.Table, species []string) (*table.Table, error) {
	filtered, err := pipeline.FilterBySpecies(t, species)
	if err != nil {
		return nil, errors.New(err).
			Component("views").
			Category(errors.CategoryMissingColumn).
			Context("species", species).
			Build()
	}
	return filtered, nil
}

// finish records metrics and logs one computation
func (e *Engine) finish(view string, res *Result, err error, start time.Time) {
	elapsed := time.Since(start)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordComputation(view, metrics.StatusError, elapsed.Seconds())
		}
		e.log.Warn("view computation failed", logger.String("view", view), logger.Error(err))
		return
	}

	if e.metrics != nil {
		e.metrics.RecordComputation(view, metrics.StatusSuccess, elapsed.Seconds())
		for _, rep := range res.Dropped {
			rep.Each(func(column, reason string, n int) {
				e.metrics.RecordDropped(column, reason, n)
			})
		}
		if n := len(res.Notices); n > 0 {
			e.metrics.RecordUnavailable(view, n)
		}
	}
	e.log.Debug("view computed",
		logger.String("view", view),
		logger.Strings("tables", res.order),
		logger.Int("notices", len(res.Notices)),
		logger.Duration("elapsed", elapsed))
}

// state memoises intermediate tables shared by several summary tables of one computation
type state struct {
	t       *table.Table
	buckets map[pipeline.Bucket]bucketed
}

type bucketed struct {
	t   *table.Table
	rep *pipeline.Report
	err error
}

func newState(t *table.Table) *state {
	return &state{t: t, buckets: make(map[pipeline.Bucket]bucketed)}
}

// bucket returns t with temporal columns; the excluded rows are merged into rep on every use
func (s *state) bucket(dateCol string, b pipeline.Bucket, rep *pipeline.Report) (*table.Table, error) {
	cached, ok := s.buckets[b]
	if !ok {
		cached.rep = pipeline.NewReport()
		cached.t, cached.err = pipeline.TemporalBucket(s.t, dateCol, b, cached.rep)
		s.buckets[b] = cached
	}
	if cached.err != nil {
		return nil, cached.err
	}
	rep.Merge(cached.rep)
	return cached.t, nil
}
