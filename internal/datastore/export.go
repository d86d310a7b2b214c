package datastore

import (
	"context"
	"time"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"gorm.io/gorm"
)

// Exporter is implemented by stores that can stream and rewrite dataset rows.
// It backs copying datasets between stores.
type Exporter interface {
	ExportObservations(ctx context.Context, dataset string, batchSize int, fn func([]Observation) error) error
	CountObservations(ctx context.Context, dataset string) (int64, error)
	ClearObservations(ctx context.Context, dataset string) (int64, error)
}

// openTable resolves dataset and checks that its table exists
func (ds *DataStore) openTable(ctx context.Context, dataset string) (canonical string, db *gorm.DB, err error) {
	canonical, tableName, err := ds.resolveTable(dataset)
	if err != nil {
		return "", nil, err
	}
	if err := ds.checkOpen(); err != nil {
		return "", nil, err
	}

	db = ds.DB.WithContext(ctx)
	if !db.Migrator().HasTable(tableName) {
		return "", nil, errors.Newf("dataset %s has no table %q, run import first", canonical, tableName).
			Component("datastore").
			Category(errors.CategoryNotFound).
			DatasetContext(canonical).
			Build()
	}
	return canonical, db.Table(tableName), nil
}

// ExportObservations passes the rows of dataset to fn in primary key order,
// at most batchSize rows per call. An error from fn stops the export.
func (ds *DataStore) ExportObservations(ctx context.Context, dataset string, batchSize int, fn func([]Observation) error) error {
	start := time.Now()
	canonical, db, err := ds.openTable(ctx, dataset)
	if err != nil {
		ds.recordError(metrics.OpExport, dataset, err)
		return err
	}

	exported := 0
	var batch []Observation
	res := db.FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		exported += len(batch)
		return fn(batch)
	})
	if res.Error != nil {
		err := ds.wrapQueryError(res.Error, "export", canonical, start)
		ds.recordError(metrics.OpExport, canonical, err)
		return err
	}

	if ds.metrics != nil {
		ds.metrics.RecordOperation(metrics.OpExport, canonical, metrics.StatusSuccess, time.Since(start).Seconds())
	}
	getLogger().Debug("exported observations",
		logger.String("dataset", canonical),
		logger.Int("rows", exported),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// CountObservations returns the number of stored rows of dataset
func (ds *DataStore) CountObservations(ctx context.Context, dataset string) (int64, error) {
	start := time.Now()
	canonical, db, err := ds.openTable(ctx, dataset)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, ds.wrapQueryError(err, "count", canonical, start)
	}
	return n, nil
}

// ClearObservations deletes every row of dataset and keeps the table
func (ds *DataStore) ClearObservations(ctx context.Context, dataset string) (int64, error) {
	start := time.Now()
	canonical, db, err := ds.openTable(ctx, dataset)
	if err != nil {
		ds.recordError(metrics.OpClear, dataset, err)
		return 0, err
	}

	res := db.Where("1 = 1").Delete(&Observation{})
	if res.Error != nil {
		err := ds.wrapQueryError(res.Error, "clear", canonical, start)
		ds.recordError(metrics.OpClear, canonical, err)
		return 0, err
	}

	if ds.metrics != nil {
		ds.metrics.RecordOperation(metrics.OpClear, canonical, metrics.StatusSuccess, time.Since(start).Seconds())
	}
	getLogger().Info("cleared observations",
		logger.String("dataset", canonical),
		logger.Int64("rows", res.RowsAffected))
	return res.RowsAffected, nil
}
