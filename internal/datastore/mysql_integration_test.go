//go:build integration

package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/tphakala/birdobs/internal/conf"
)

func TestMySQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("birds"),
		tcmysql.WithUsername("birdobs"),
		tcmysql.WithPassword("birdobs"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := conf.Defaults()
	settings.Datastore.Type = conf.DatastoreMySQL
	settings.Datastore.MySQL = conf.MySQLSettings{
		Host:     host,
		Port:     port.Port(),
		Username: "birdobs",
		Password: "birdobs",
		Database: "birds",
	}

	store, err := New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.ImportObservations(ctx, "Forest", sampleObservations()))

	tbl, err := store.FetchAll(ctx, "Forest")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	// MySQL returns text as []byte; the store hands out strings
	names, _ := tbl.Column("Common_Name")
	assert.Contains(t, names, "Robin")
}
