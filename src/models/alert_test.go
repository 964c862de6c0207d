package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimgr/floodwatch/src/config"
	"github.com/apimgr/floodwatch/src/database"
	"github.com/apimgr/floodwatch/src/utils"
)

// setupTestDB creates a throwaway SQLite database with the full schema
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{
		Type: "sqlite",
		Name: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestAlertModel(t *testing.T) (*AlertModel, *database.DB) {
	db := setupTestDB(t)
	return NewAlertModel(db, utils.NewLogger("panic", false)), db
}

func TestCreateAndByUser(t *testing.T) {
	m, _ := newTestAlertModel(t)
	ctx := context.Background()

	keys, err := m.Create(ctx, AlertSubscription{
		Username:   "u1",
		Network:    "twitter",
		Language:   "en",
		Subscribed: true,
		Lat:        10,
		Lng:        20,
	})
	require.NoError(t, err)
	require.NotNil(t, keys)
	assert.Positive(t, keys.UserKey)
	assert.Positive(t, keys.LocationKey)

	alerts, err := m.ByUser(ctx, "u1", "twitter")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, keys.UserKey, alerts[0].UserKey)
	assert.Equal(t, keys.LocationKey, alerts[0].LocationKey)
	assert.Equal(t, "en", alerts[0].Language)
	assert.True(t, alerts[0].Subscribed)
	assert.Equal(t, 10.0, alerts[0].Lat)
	assert.Equal(t, 20.0, alerts[0].Lng)
}

func TestByUserNoMatch(t *testing.T) {
	m, _ := newTestAlertModel(t)

	alerts, err := m.ByUser(context.Background(), "nobody", "twitter")
	require.NoError(t, err)
	assert.Nil(t, alerts)
}

// registering again for the same username/network reuses the user row and
// adds a second location
func TestCreateUpsertsUser(t *testing.T) {
	m, _ := newTestAlertModel(t)
	ctx := context.Background()

	first, err := m.Create(ctx, AlertSubscription{
		Username: "u1", Network: "twitter", Language: "en", Subscribed: true, Lat: 1, Lng: 2,
	})
	require.NoError(t, err)

	second, err := m.Create(ctx, AlertSubscription{
		Username: "u1", Network: "twitter", Language: "id", Subscribed: true, Lat: 3, Lng: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, first.UserKey, second.UserKey)
	assert.NotEqual(t, first.LocationKey, second.LocationKey)

	alerts, err := m.ByUser(ctx, "u1", "twitter")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "id", alerts[0].Language, "language follows the latest registration")
}

// same username on a different network is a separate subscription
func TestCreateSeparatesNetworks(t *testing.T) {
	m, _ := newTestAlertModel(t)
	ctx := context.Background()

	tw, err := m.Create(ctx, AlertSubscription{
		Username: "u1", Network: "twitter", Language: "en", Subscribed: true, Lat: 1, Lng: 2,
	})
	require.NoError(t, err)
	tg, err := m.Create(ctx, AlertSubscription{
		Username: "u1", Network: "telegram", Language: "en", Subscribed: true, Lat: 1, Lng: 2,
	})
	require.NoError(t, err)

	assert.NotEqual(t, tw.UserKey, tg.UserKey)
}

func TestUpdateSubscription(t *testing.T) {
	m, db := newTestAlertModel(t)
	ctx := context.Background()

	keys, err := m.Create(ctx, AlertSubscription{
		Username: "u1", Network: "twitter", Language: "en", Subscribed: true, Lat: 1, Lng: 2,
	})
	require.NoError(t, err)

	result, err := m.Update(ctx, AlertUpdate{
		UserKey:     keys.UserKey,
		LocationKey: keys.LocationKey,
		Subscribed:  false,
		LogEvent:    map[string]any{"reason": "unsubscribe"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, keys.UserKey, result.UserKey)
	assert.False(t, result.Subscribed)

	alerts, err := m.ByUser(ctx, "u1", "twitter")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Subscribed)

	var logged int
	err = db.QueryRow(db.Rebind("SELECT COUNT(*) FROM alert_log WHERE userkey = ?"), keys.UserKey).Scan(&logged)
	require.NoError(t, err)
	assert.Equal(t, 1, logged)
}

// unknown keys produce a nil result, not an error: the handler maps this to
// a domain rejection
func TestUpdateUnknownKeysReturnsNil(t *testing.T) {
	m, _ := newTestAlertModel(t)

	result, err := m.Update(context.Background(), AlertUpdate{
		UserKey:     999,
		LocationKey: 999,
		Subscribed:  false,
		LogEvent:    "x",
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}
