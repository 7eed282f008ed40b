// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/metrics"
	"github.com/tomtom215/deskatlas/internal/models"
)

// DuckDB is the production Directory over an embedded DuckDB file. The
// seating tables are small (hundreds of desks per department) so every
// query is a direct scan with no caching between here and the viewport.
type DuckDB struct {
	conn *sql.DB
}

// schema creates the seating tables when they do not exist. Idempotent
// so a restart against an existing file is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS departments (
	department_id VARCHAR PRIMARY KEY,
	name          VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS desks (
	desk_id       VARCHAR PRIMARY KEY,
	department_id VARCHAR NOT NULL,
	x             DOUBLE NOT NULL,
	y             DOUBLE NOT NULL,
	width         DOUBLE NOT NULL,
	height        DOUBLE NOT NULL,
	label         VARCHAR NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS employees (
	employee_id   VARCHAR PRIMARY KEY,
	department_id VARCHAR NOT NULL,
	name          VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	employee_id VARCHAR NOT NULL,
	desk_id     VARCHAR NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT true,
	assigned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS map_assets (
	map_id        VARCHAR PRIMARY KEY,
	department_id VARCHAR NOT NULL,
	asset_type    VARCHAR NOT NULL,
	url           VARCHAR NOT NULL,
	width         DOUBLE NOT NULL,
	height        DOUBLE NOT NULL,
	published     BOOLEAN NOT NULL DEFAULT false,
	published_at  TIMESTAMP
);
`

// NewDuckDB opens (or creates) the seating database and ensures the
// schema exists. An empty path opens an in-memory database.
func NewDuckDB(cfg *config.DirectoryConfig) (*DuckDB, error) {
	path := cfg.Path
	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("creating directory data dir %s: %w", dir, err)
			}
		}
		path = fmt.Sprintf("%s?access_mode=read_write&threads=%d", path, runtime.NumCPU())
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening seating database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging seating database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing seating schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("seating database ready")
	return &DuckDB{conn: conn}, nil
}

// Conn exposes the raw connection for seeding in tests and tooling.
func (d *DuckDB) Conn() *sql.DB { return d.conn }

// Close closes the underlying database.
func (d *DuckDB) Close() error {
	return d.conn.Close()
}

func (d *DuckDB) Departments(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx,
		`SELECT department_id FROM departments ORDER BY department_id`)
	metrics.ObserveDirectoryQuery("departments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer closeRows(rows)

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DuckDB) DepartmentDesks(ctx context.Context, departmentID string) ([]models.Desk, error) {
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, `
		SELECT desk_id, department_id, x, y, width, height, label
		FROM desks
		WHERE department_id = ?
		ORDER BY desk_id`, departmentID)
	metrics.ObserveDirectoryQuery("department_desks", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("querying desks for %s: %w", departmentID, err)
	}
	defer closeRows(rows)

	var out []models.Desk
	for rows.Next() {
		var desk models.Desk
		if err := rows.Scan(&desk.ID, &desk.DepartmentID, &desk.X, &desk.Y,
			&desk.Width, &desk.Height, &desk.Label); err != nil {
			return nil, fmt.Errorf("scanning desk: %w", err)
		}
		out = append(out, desk)
	}
	return out, rows.Err()
}

func (d *DuckDB) DepartmentAssignments(ctx context.Context, departmentID string) ([]models.Assignment, error) {
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, `
		SELECT a.employee_id, a.desk_id, a.active, a.assigned_at
		FROM assignments a
		JOIN desks d ON d.desk_id = a.desk_id
		WHERE d.department_id = ?
		ORDER BY a.desk_id, a.assigned_at`, departmentID)
	metrics.ObserveDirectoryQuery("department_assignments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("querying assignments for %s: %w", departmentID, err)
	}
	defer closeRows(rows)

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.EmployeeID, &a.DeskID, &a.Active, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DuckDB) DepartmentMapAsset(ctx context.Context, departmentID string) (models.MapAsset, error) {
	start := time.Now()
	row := d.conn.QueryRowContext(ctx, `
		SELECT map_id, department_id, asset_type, url, width, height
		FROM map_assets
		WHERE department_id = ? AND published
		ORDER BY published_at DESC
		LIMIT 1`, departmentID)

	var asset models.MapAsset
	var assetType string
	err := row.Scan(&asset.MapID, &asset.DepartmentID, &assetType,
		&asset.URL, &asset.Width, &asset.Height)
	metrics.ObserveDirectoryQuery("department_map_asset", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MapAsset{}, fmt.Errorf("%w: department %s", ErrNoPublishedMap, departmentID)
	}
	if err != nil {
		return models.MapAsset{}, fmt.Errorf("querying map asset for %s: %w", departmentID, err)
	}
	asset.Type = models.MapAssetType(assetType)
	return asset, nil
}

func (d *DuckDB) SearchEmployeesByName(ctx context.Context, query string, limit int) ([]models.Employee, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	// Case-insensitive substring match, prefix matches first, then
	// alphabetical. Escape LIKE metacharacters so a literal "%" in a
	// name cannot widen the search.
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	prefix := escapeLike(strings.ToLower(query)) + "%"

	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, `
		SELECT employee_id, department_id, name
		FROM employees
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY (LOWER(name) LIKE ? ESCAPE '\') DESC, name, employee_id
		LIMIT ?`, pattern, prefix, limit)
	metrics.ObserveDirectoryQuery("search_employees", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("searching employees: %w", err)
	}
	defer closeRows(rows)

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.DepartmentID, &e.Name); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DuckDB) EmployeeDesk(ctx context.Context, employeeID string) (models.Desk, bool, error) {
	start := time.Now()
	row := d.conn.QueryRowContext(ctx, `
		SELECT d.desk_id, d.department_id, d.x, d.y, d.width, d.height, d.label
		FROM assignments a
		JOIN desks d ON d.desk_id = a.desk_id
		WHERE a.employee_id = ? AND a.active
		ORDER BY a.assigned_at DESC
		LIMIT 1`, employeeID)

	var desk models.Desk
	err := row.Scan(&desk.ID, &desk.DepartmentID, &desk.X, &desk.Y,
		&desk.Width, &desk.Height, &desk.Label)
	metrics.ObserveDirectoryQuery("employee_desk", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Desk{}, false, nil
	}
	if err != nil {
		return models.Desk{}, false, fmt.Errorf("resolving desk for %s: %w", employeeID, err)
	}
	return desk, true, nil
}

// ignoreNoRows keeps "no such row" out of the error metrics; it is an
// expected outcome, not a query failure.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing result rows")
	}
}
