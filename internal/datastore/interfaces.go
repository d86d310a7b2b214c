// Package datastore provides the gorm-backed observation store.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"github.com/tphakala/birdobs/internal/table"
	"gorm.io/gorm"
)

// importBatchSize bounds rows per INSERT statement
const importBatchSize = 500

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	// FetchAll returns every observation of dataset as an immutable table
	FetchAll(ctx context.Context, dataset string) (*table.Table, error)
	// ImportObservations creates the dataset table if needed and appends obs
	ImportObservations(ctx context.Context, dataset string, obs []Observation) error
	// Datasets returns the configured dataset names
	Datasets() []string
	Ping(ctx context.Context) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
	metrics  *metrics.DatastoreMetrics
}

// New creates the store selected by datastore.type. The store is not opened.
func New(settings *conf.Settings) (Interface, error) {
	switch strings.ToLower(settings.Datastore.Type) {
	case conf.DatastoreSQLite, "":
		return &SQLiteStore{DataStore: DataStore{Settings: settings}}, nil
	case conf.DatastoreMySQL:
		return &MySQLStore{DataStore: DataStore{Settings: settings}}, nil
	case conf.DatastorePostgres:
		return &PostgresStore{DataStore: DataStore{Settings: settings}}, nil
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Datastore.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// SetMetrics attaches datastore metrics. Nil disables recording.
func (ds *DataStore) SetMetrics(m *metrics.DatastoreMetrics) {
	ds.metrics = m
}

// Datasets returns a copy of the configured dataset allowlist
func (ds *DataStore) Datasets() []string {
	return slices.Clone(ds.Settings.Datasets)
}

// resolveTable maps a dataset name to its table name. Names outside the
// allowlist are rejected so they never reach SQL.
func (ds *DataStore) resolveTable(dataset string) (canonical, tableName string, err error) {
	canonical, ok := ds.Settings.HasDataset(dataset)
	if !ok {
		return "", "", errors.Newf("unknown dataset %q", dataset).
			Component("datastore").
			Category(errors.CategoryNotFound).
			DatasetContext(dataset).
			Context("allowed", ds.Settings.Datasets).
			Build()
	}
	return canonical, strings.ToLower(canonical), nil
}

func (ds *DataStore) checkOpen() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// FetchAll reads the whole dataset table. Cells keep the driver's types;
// []byte values are normalised to strings by table.New.
func (ds *DataStore) FetchAll(ctx context.Context, dataset string) (*table.Table, error) {
	start := time.Now()
	canonical, tableName, err := ds.resolveTable(dataset)
	if err != nil {
		ds.recordError(metrics.OpFetchAll, dataset, err)
		return nil, err
	}
	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	if timeout := ds.Settings.Datastore.FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	db := ds.DB.WithContext(ctx)
	if !db.Migrator().HasTable(tableName) {
		err := errors.Newf("dataset %s has no table %q, run import first", canonical, tableName).
			Component("datastore").
			Category(errors.CategoryNotFound).
			DatasetContext(canonical).
			Build()
		ds.recordError(metrics.OpFetchAll, canonical, err)
		return nil, err
	}

	rows, err := db.Table(tableName).Rows()
	if err != nil {
		err = ds.wrapQueryError(err, "fetch", canonical, start)
		ds.recordError(metrics.OpFetchAll, canonical, err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	t, err := scanTable(rows)
	if err != nil {
		err = ds.wrapQueryError(err, "scan", canonical, start)
		ds.recordError(metrics.OpFetchAll, canonical, err)
		return nil, err
	}

	elapsed := time.Since(start)
	if ds.metrics != nil {
		ds.metrics.RecordOperation(metrics.OpFetchAll, canonical, metrics.StatusSuccess, elapsed.Seconds())
		ds.metrics.RecordRowsFetched(canonical, t.Len())
	}
	getLogger().Debug("fetched dataset",
		logger.String("dataset", canonical),
		logger.Int("rows", t.Len()),
		logger.Int("columns", t.Width()),
		logger.Duration("elapsed", elapsed))
	return t, nil
}

// scanTable materialises a result set, dropping the surrogate key column
func scanTable(rows *sql.Rows) (*table.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, len(cols))
	outCols := make([]string, 0, len(cols))
	for i, c := range cols {
		if strings.EqualFold(c, surrogateKey) {
			continue
		}
		keep = append(keep, i)
		outCols = append(outCols, c)
	}

	b := table.NewBuilder(outCols...)
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(keep))
		for j, i := range keep {
			row[j] = raw[i]
			// drivers may reuse byte buffers between rows
			if bs, ok := raw[i].([]byte); ok {
				row[j] = string(bs)
			}
		}
		b.Add(row...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}

// Migrate creates or updates the table of dataset
func (ds *DataStore) Migrate(ctx context.Context, dataset string) error {
	start := time.Now()
	canonical, tableName, err := ds.resolveTable(dataset)
	if err != nil {
		return err
	}
	if err := ds.checkOpen(); err != nil {
		return err
	}

	if err := ds.DB.WithContext(ctx).Table(tableName).AutoMigrate(&Observation{}); err != nil {
		err = ds.wrapQueryError(err, "migrate", canonical, start)
		ds.recordError(metrics.OpMigrate, canonical, err)
		return err
	}
	if ds.metrics != nil {
		ds.metrics.RecordOperation(metrics.OpMigrate, canonical, metrics.StatusSuccess, time.Since(start).Seconds())
	}
	return nil
}

// ImportObservations appends obs to the dataset table in a single transaction
func (ds *DataStore) ImportObservations(ctx context.Context, dataset string, obs []Observation) error {
	canonical, tableName, err := ds.resolveTable(dataset)
	if err != nil {
		return err
	}
	if err := ds.Migrate(ctx, canonical); err != nil {
		return err
	}
	if len(obs) == 0 {
		return nil
	}

	start := time.Now()
	// surrogate keys come from the database
	rows := make([]Observation, len(obs))
	copy(rows, obs)
	for i := range rows {
		rows[i].ID = 0
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(tableName).CreateInBatches(rows, importBatchSize).Error
	})
	if err != nil {
		err = ds.wrapQueryError(err, "import", canonical, start)
		ds.recordError(metrics.OpImport, canonical, err)
		return err
	}

	if ds.metrics != nil {
		ds.metrics.RecordOperation(metrics.OpImport, canonical, metrics.StatusSuccess, time.Since(start).Seconds())
		ds.metrics.RecordRowsImported(canonical, len(rows))
	}
	getLogger().Info("imported observations",
		logger.String("dataset", canonical),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Ping verifies the connection is alive
func (ds *DataStore) Ping(ctx context.Context) error {
	if err := ds.checkOpen(); err != nil {
		return err
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", metrics.OpPing).
			Build()
	}
	return nil
}

// closeDB releases the connection pool
func (ds *DataStore) closeDB() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	ds.DB = nil
	return nil
}

func (ds *DataStore) wrapQueryError(err error, operation, dataset string, start time.Time) error {
	category := errors.CategoryDatabase
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
	}
	return errors.New(err).
		Component("datastore").
		Category(category).
		DatasetContext(dataset).
		Timing(operation, time.Since(start)).
		Build()
}

func (ds *DataStore) recordError(operation, dataset string, err error) {
	if ds.metrics == nil {
		return
	}
	category := string(errors.CategoryGeneric)
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		category = ee.GetCategory()
	}
	ds.metrics.RecordOperation(operation, dataset, metrics.StatusError, 0)
	ds.metrics.RecordOperationError(operation, dataset, category)
}

// gormConfig returns the shared gorm configuration
func gormConfig(settings *conf.Settings) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(getLogger().Module("gorm"), settings.Datastore.SlowQueryThreshold),
	}
}
