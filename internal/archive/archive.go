package archive

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Archive is the cut-off date history database
type Archive struct {
	db *sql.DB
}

// Query selects one history series. VisaType is required; empty fields match anything.
type Query struct {
	VisaType    string               `json:"visa_type"`
	VisaArea    string               `json:"visa_area,omitempty"`
	DateType    bulletin.DateType    `json:"date_type,omitempty"`
	Sponsorship bulletin.Sponsorship `json:"sponsorship,omitempty"`
}

// Open opens or creates the database at path and applies pending migrations
func Open(ctx context.Context, path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// A single connection serialises writers on the one database file
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if _, err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

// runMigrations applies all pending migrations and returns the schema version
func runMigrations(db *sql.DB) (uint, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("archive schema version %d is dirty", version)
	}
	return version, nil
}

// Close closes the database
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores the page's cut-off dates and returns how many were new
func (a *Archive) Record(ctx context.Context, page bulletin.Page) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO cutoff_dates
			(year, month, month_number, date_type, sponsorship, visa_type, visa_area, visa_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, d := range page.CutOffDates {
		period := bulletin.Period{Year: d.Year, Month: d.Month}
		res, err := stmt.ExecContext(ctx,
			d.Year, d.Month, int(period.MonthNumber()),
			string(d.DateType), string(d.Sponsorship),
			d.VisaType, d.VisaArea, d.VisaDate,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert cut-off date: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cut-off dates: %w", err)
	}
	return inserted, nil
}

// History returns the matching cut-off dates, oldest bulletin first
func (a *Archive) History(ctx context.Context, q Query) ([]bulletin.CutOffDate, error) {
	if strings.TrimSpace(q.VisaType) == "" {
		return nil, errors.New("visa type is required")
	}

	where := []string{"visa_type = ?"}
	args := []interface{}{q.VisaType}
	if q.VisaArea != "" {
		where = append(where, "visa_area = ?")
		args = append(args, q.VisaArea)
	}
	if q.DateType != "" {
		where = append(where, "date_type = ?")
		args = append(args, string(q.DateType))
	}
	if q.Sponsorship != "" {
		where = append(where, "sponsorship = ?")
		args = append(args, string(q.Sponsorship))
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT year, month, date_type, sponsorship, visa_type, visa_area, visa_date
		FROM cutoff_dates
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY CAST(year AS INTEGER), month_number, month, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []bulletin.CutOffDate{}
	for rows.Next() {
		var d bulletin.CutOffDate
		var dateType, sponsorship string
		if err := rows.Scan(&d.Year, &d.Month, &dateType, &sponsorship, &d.VisaType, &d.VisaArea, &d.VisaDate); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		d.DateType = bulletin.DateType(dateType)
		d.Sponsorship = bulletin.Sponsorship(sponsorship)
		history = append(history, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return history, nil
}
