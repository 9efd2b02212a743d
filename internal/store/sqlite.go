// Package store persists accident reports in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// timeFormat is fixed width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store wraps a SQLite connection holding accident reports
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the SQLite database at path, enables foreign keys and ensures the schema
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; an in-memory database also lives on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateReport validates and stores a report, assigning its ID and creation time
func (s *Store) CreateReport(ctx context.Context, report AccidentReport) (*AccidentReport, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}

	report.ID = uuid.NewString()
	report.CreatedAt = s.now().UTC()
	report.AccidentDate = report.AccidentDate.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accident_reports (id, region, police_station,
			before_lat, before_lng, after_lat, after_lng, accident_lat, accident_lng,
			cause, injury_severity, accident_date, reported_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID, report.Region, report.PoliceStation,
		report.Before.Latitude, report.Before.Longitude,
		report.After.Latitude, report.After.Longitude,
		report.Accident.Latitude, report.Accident.Longitude,
		report.Cause, report.InjurySeverity,
		report.AccidentDate.Format(timeFormat),
		report.ReportedBy,
		report.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	vehicleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accident_vehicles (report_id, position, number, type) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare vehicle statement: %w", err)
	}
	defer vehicleStmt.Close()

	for i, v := range report.Vehicles {
		if _, err := vehicleStmt.ExecContext(ctx, report.ID, i, v.Number, v.Type); err != nil {
			return nil, fmt.Errorf("failed to insert vehicle %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}
	return &report, nil
}

const reportColumns = `id, region, police_station,
	before_lat, before_lng, after_lat, after_lng, accident_lat, accident_lng,
	cause, injury_severity, accident_date, reported_by, created_at`

// GetReport returns one report with its vehicles
func (s *Store) GetReport(ctx context.Context, id string) (*AccidentReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM accident_reports WHERE id = ?`, id)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if err := s.loadVehicles(ctx, []*AccidentReport{report}); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns reports newest first, optionally for one region
func (s *Store) ListReports(ctx context.Context, filter ListFilter) ([]*AccidentReport, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	query := `SELECT ` + reportColumns + ` FROM accident_reports`
	var args []any
	if region := strings.TrimSpace(filter.Region); region != "" {
		query += ` WHERE region = ?`
		args = append(args, region)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []*AccidentReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	// Release the single connection before loading vehicles
	rows.Close()

	if err := s.loadVehicles(ctx, reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// loadVehicles fills the vehicles of each report in position order
func (s *Store) loadVehicles(ctx context.Context, reports []*AccidentReport) error {
	if len(reports) == 0 {
		return nil
	}

	byID := make(map[string]*AccidentReport, len(reports))
	placeholders := make([]string, 0, len(reports))
	args := make([]any, 0, len(reports))
	for _, r := range reports {
		byID[r.ID] = r
		r.Vehicles = []Vehicle{}
		placeholders = append(placeholders, "?")
		args = append(args, r.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, number, type FROM accident_vehicles
		WHERE report_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY report_id, position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reportID string
		var v Vehicle
		if err := rows.Scan(&reportID, &v.Number, &v.Type); err != nil {
			return fmt.Errorf("failed to scan vehicle: %w", err)
		}
		if r, ok := byID[reportID]; ok {
			r.Vehicles = append(r.Vehicles, v)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*AccidentReport, error) {
	var r AccidentReport
	var accidentDate, createdAt string
	err := row.Scan(&r.ID, &r.Region, &r.PoliceStation,
		&r.Before.Latitude, &r.Before.Longitude,
		&r.After.Latitude, &r.After.Longitude,
		&r.Accident.Latitude, &r.Accident.Longitude,
		&r.Cause, &r.InjurySeverity, &accidentDate, &r.ReportedBy, &createdAt)
	if err != nil {
		return nil, err
	}

	if r.AccidentDate, err = time.Parse(timeFormat, accidentDate); err != nil {
		return nil, fmt.Errorf("invalid accident_date %q: %w", accidentDate, err)
	}
	if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return &r, nil
}
