package models

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/database"
	"github.com/apimgr/floodwatch/src/metrics"
	"github.com/apimgr/floodwatch/src/services"
)

// Report is a historical flood report record
type Report struct {
	Pkey         int64     `json:"pkey"`
	CreatedAt    time.Time `json:"created_at"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	URL          string    `json:"url"`
	ImageURL     string    `json:"image_url"`
	DisasterType string    `json:"disaster_type"`
	ReportData   string    `json:"report_data"`
	Tags         string    `json:"tags"`
	City         string    `json:"city"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
}

// Feature returns the report as a point feature for geo formatting
func (r Report) Feature() services.GeoFeature {
	return services.GeoFeature{
		ID:  r.Pkey,
		Lat: r.Lat,
		Lng: r.Lng,
		Properties: map[string]any{
			"pkey":          r.Pkey,
			"created_at":    r.CreatedAt.Format(time.RFC3339),
			"source":        r.Source,
			"status":        r.Status,
			"url":           r.URL,
			"image_url":     r.ImageURL,
			"disaster_type": r.DisasterType,
			"report_data":   r.ReportData,
			"tags":          r.Tags,
			"city":          r.City,
		},
	}
}

// ArchiveModel handles historic report queries
type ArchiveModel struct {
	db     *database.DB
	logger *logrus.Logger
}

// NewArchiveModel creates an archive model
func NewArchiveModel(db *database.DB, logger *logrus.Logger) *ArchiveModel {
	return &ArchiveModel{db: db, logger: logger}
}

// All returns reports created within [start, end], optionally filtered by
// city. An empty result is valid data, not an error.
func (m *ArchiveModel) All(ctx context.Context, start, end time.Time, city string) ([]Report, error) {
	metrics.DBQueriesTotal.WithLabelValues("select", "reports").Inc()

	query := `
		SELECT pkey, created_at, source, status, url, image_url,
		       disaster_type, report_data, tags, city, lat, lng
		FROM reports
		WHERE created_at >= ? AND created_at <= ?
	`
	args := []any{
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	}
	if city != "" {
		query += " AND city = ?"
		args = append(args, city)
	}
	query += " ORDER BY created_at"

	rows, err := m.db.QueryContext(ctx, m.db.Rebind(query), args...)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "reports").Inc()
		return nil, fmt.Errorf("archive all: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		var r Report
		var createdAt string
		if err := rows.Scan(&r.Pkey, &createdAt, &r.Source, &r.Status, &r.URL, &r.ImageURL,
			&r.DisasterType, &r.ReportData, &r.Tags, &r.City, &r.Lat, &r.Lng); err != nil {
			return nil, fmt.Errorf("archive all: scan: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("archive all: bad created_at %q: %w", createdAt, err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive all: %w", err)
	}

	return reports, nil
}
