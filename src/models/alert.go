// Package models implements data access for alert subscriptions and the
// report archive
package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/database"
	"github.com/apimgr/floodwatch/src/metrics"
	"github.com/apimgr/floodwatch/src/services"
)

// Alert is a user's subscription to flood notifications tied to a location
// and social-network identity
type Alert struct {
	UserKey     int64   `json:"userkey"`
	LocationKey int64   `json:"location_key"`
	Username    string  `json:"username"`
	Network     string  `json:"network"`
	Language    string  `json:"language"`
	Subscribed  bool    `json:"subscribed"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Feature returns the alert as a point feature for geo formatting
func (a Alert) Feature() services.GeoFeature {
	return services.GeoFeature{
		ID:  a.LocationKey,
		Lat: a.Lat,
		Lng: a.Lng,
		Properties: map[string]any{
			"userkey":      a.UserKey,
			"location_key": a.LocationKey,
			"username":     a.Username,
			"network":      a.Network,
			"language":     a.Language,
			"subscribed":   a.Subscribed,
		},
	}
}

// AlertSubscription is a validated create request
type AlertSubscription struct {
	Username   string
	Network    string
	Language   string
	Subscribed bool
	Lat        float64
	Lng        float64
}

// AlertKeys identifies a stored subscription
type AlertKeys struct {
	UserKey     int64 `json:"userkey"`
	LocationKey int64 `json:"location_key"`
}

// AlertUpdate is a validated update request. LogEvent is stored verbatim in
// the alert log.
type AlertUpdate struct {
	UserKey     int64
	LocationKey int64
	Subscribed  bool
	LogEvent    any
}

// AlertUpdateResult reports the state after an update
type AlertUpdateResult struct {
	UserKey     int64 `json:"userkey"`
	LocationKey int64 `json:"location_key"`
	Subscribed  bool  `json:"subscribed"`
}

// AlertModel handles alert subscription database operations
type AlertModel struct {
	db     *database.DB
	logger *logrus.Logger
}

// NewAlertModel creates an alert model
func NewAlertModel(db *database.DB, logger *logrus.Logger) *AlertModel {
	return &AlertModel{db: db, logger: logger}
}

// ByUser returns the alert subscriptions for a username on a network.
// A nil slice with nil error means no matching record.
func (m *AlertModel) ByUser(ctx context.Context, username, network string) ([]Alert, error) {
	metrics.DBQueriesTotal.WithLabelValues("select", "alert_users").Inc()

	query := m.db.Rebind(`
		SELECT u.userkey, l.location_key, u.username, u.network, u.language, u.subscribed, l.lat, l.lng
		FROM alert_users u
		JOIN alert_locations l ON l.userkey = u.userkey
		WHERE u.username = ? AND u.network = ?
		ORDER BY l.location_key
	`)

	rows, err := m.db.QueryContext(ctx, query, username, network)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "alert_users").Inc()
		return nil, fmt.Errorf("alerts by user: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.UserKey, &a.LocationKey, &a.Username, &a.Network,
			&a.Language, &a.Subscribed, &a.Lat, &a.Lng); err != nil {
			return nil, fmt.Errorf("alerts by user: scan: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alerts by user: %w", err)
	}

	return alerts, nil
}

// Create registers a subscription: the user row is upserted on
// (username, network) and a new location row is attached to it
func (m *AlertModel) Create(ctx context.Context, sub AlertSubscription) (*AlertKeys, error) {
	metrics.DBQueriesTotal.WithLabelValues("insert", "alert_users").Inc()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create alert: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	var userKey int64
	err = tx.QueryRowContext(ctx, m.db.Rebind(`
		INSERT INTO alert_users (username, network, language, subscribed, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username, network)
		DO UPDATE SET language = excluded.language, subscribed = excluded.subscribed
		RETURNING userkey
	`), sub.Username, sub.Network, sub.Language, sub.Subscribed, now).Scan(&userKey)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "alert_users").Inc()
		return nil, fmt.Errorf("create alert: user: %w", err)
	}

	var locationKey int64
	err = tx.QueryRowContext(ctx, m.db.Rebind(`
		INSERT INTO alert_locations (userkey, lat, lng, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING location_key
	`), userKey, sub.Lat, sub.Lng, now).Scan(&locationKey)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "alert_locations").Inc()
		return nil, fmt.Errorf("create alert: location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create alert: commit: %w", err)
	}

	return &AlertKeys{UserKey: userKey, LocationKey: locationKey}, nil
}

// Update sets the subscribed flag for a stored subscription and appends the
// request's log event to the alert log. A nil result with nil error means no
// subscription matched the given keys.
func (m *AlertModel) Update(ctx context.Context, upd AlertUpdate) (*AlertUpdateResult, error) {
	metrics.DBQueriesTotal.WithLabelValues("update", "alert_users").Inc()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update alert: begin: %w", err)
	}
	defer tx.Rollback()

	var locationKey int64
	err = tx.QueryRowContext(ctx, m.db.Rebind(`
		SELECT location_key FROM alert_locations
		WHERE userkey = ? AND location_key = ?
	`), upd.UserKey, upd.LocationKey).Scan(&locationKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("update", "alert_users").Inc()
		return nil, fmt.Errorf("update alert: lookup: %w", err)
	}

	res, err := tx.ExecContext(ctx, m.db.Rebind(`
		UPDATE alert_users SET subscribed = ? WHERE userkey = ?
	`), upd.Subscribed, upd.UserKey)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("update", "alert_users").Inc()
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}

	event, err := json.Marshal(upd.LogEvent)
	if err != nil {
		return nil, fmt.Errorf("update alert: encode log event: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, m.db.Rebind(`
		INSERT INTO alert_log (userkey, location_key, event, created_at)
		VALUES (?, ?, ?, ?)
	`), upd.UserKey, upd.LocationKey, string(event), now)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("insert", "alert_log").Inc()
		return nil, fmt.Errorf("update alert: log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update alert: commit: %w", err)
	}

	return &AlertUpdateResult{
		UserKey:     upd.UserKey,
		LocationKey: upd.LocationKey,
		Subscribed:  upd.Subscribed,
	}, nil
}
