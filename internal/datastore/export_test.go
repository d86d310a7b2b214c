package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/errors"
)

func TestExportObservations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ImportObservations(ctx, "Forest", sampleObservations()))

	var sizes []int
	var names []string
	err := store.ExportObservations(ctx, "forest", 2, func(batch []Observation) error {
		sizes = append(sizes, len(batch))
		for _, o := range batch {
			names = append(names, o.CommonName)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, sizes)
	assert.Equal(t, []string{"Robin", "Wren", "Robin"}, names)

	n, err := store.CountObservations(ctx, "Forest")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestExportStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ImportObservations(ctx, "Forest", sampleObservations()))

	calls := 0
	err := store.ExportObservations(ctx, "Forest", 1, func([]Observation) error {
		calls++
		return errors.NewStd("target unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClearObservations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ImportObservations(ctx, "Grassland", sampleObservations()))

	deleted, err := store.ClearObservations(ctx, "Grassland")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	n, err := store.CountObservations(ctx, "Grassland")
	require.NoError(t, err)
	assert.Zero(t, n)

	// the table survives so fetches return an empty dataset
	tbl, err := store.FetchAll(ctx, "Grassland")
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
}

func TestExportMissingTable(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.ExportObservations(context.Background(), "Forest", 10, func([]Observation) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.CountObservations(context.Background(), "Wetland")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
