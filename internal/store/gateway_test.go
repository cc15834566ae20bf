package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/maintreq/internal/requests"
)

func newSQLiteGateway(t *testing.T) *Gateway {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "maintreq.db") + "?_busy_timeout=5000"
	g := NewGateway(Config{Dialect: SQLite, DSN: dsn, Location: saoPaulo})
	require.NoError(t, g.Migrate(context.Background()))
	return g
}

func TestGateway_NotConfigured(t *testing.T) {
	g := NewGateway(Config{Dialect: SQLite})
	_, err := g.FetchAllRequests(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, g.Ping(context.Background()), ErrNotConfigured)
}

func TestGateway_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	older := sampleRequest()
	older.SubmittedAt = time.Date(2024, 6, 1, 8, 0, 0, 0, saoPaulo)

	newer := sampleRequest()
	newer.SubmittedAt = time.Date(2024, 6, 5, 17, 30, 0, 0, saoPaulo)
	newer.EquipmentModel = "Coletor MC33"
	value := 1250.75
	center := "CC-200"
	newer.Value = &value
	newer.CostCenter = &center

	olderID, err := g.InsertRequest(ctx, older)
	require.NoError(t, err)
	newerID, err := g.InsertRequest(ctx, newer)
	require.NoError(t, err)
	assert.NotEqual(t, olderID, newerID)

	rows, err := g.FetchAllRequests(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, newerID, rows[0].ID)
	assert.Equal(t, olderID, rows[1].ID)
	assert.True(t, rows[0].SubmittedAt.Equal(newer.SubmittedAt))
	assert.Equal(t, 17, rows[0].SubmittedAt.Hour())
	require.NotNil(t, rows[0].Value)
	assert.InDelta(t, 1250.75, *rows[0].Value, 0.001)
	require.NotNil(t, rows[0].CostCenter)
	assert.Equal(t, "CC-200", *rows[0].CostCenter)

	assert.Nil(t, rows[1].Value)
	assert.Nil(t, rows[1].EquipmentDescription)
	assert.Nil(t, rows[1].PhotoURL)
	assert.Equal(t, requests.StatusAwaitingShipment, rows[1].Status)
}

func TestGateway_SQLiteDelete(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	id, err := g.InsertRequest(ctx, sampleRequest())
	require.NoError(t, err)

	require.NoError(t, g.DeleteRequest(ctx, id))
	assert.ErrorIs(t, g.DeleteRequest(ctx, id), ErrNotFound)

	rows, err := g.FetchAllRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGateway_SQLiteInsertRequestsIsAtomic(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	bad := sampleRequest()
	bad.Reason = ""
	_, err := g.InsertRequests(ctx, []requests.Request{sampleRequest(), bad})
	require.Error(t, err)

	rows, err := g.FetchAllRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := g.InsertRequests(ctx, []requests.Request{sampleRequest(), sampleRequest()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGateway_MigrateIsIdempotent(t *testing.T) {
	g := newSQLiteGateway(t)
	require.NoError(t, g.Migrate(context.Background()))
}
