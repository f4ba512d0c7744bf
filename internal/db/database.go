package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02 15:04:05"

// Resource kinds tracked in the ledger.
const (
	KindGroup    = "group"
	KindActivity = "activity"
)

// Resource is a remote object created by a run.
type Resource struct {
	Kind       string
	ResourceID string
	Title      string
	RunID      string
	CreatedAt  time.Time
	Deleted    bool
	DeletedAt  time.Time
}

// SQLiteDatabase stores the resource ledger and cached OAuth tokens.
type SQLiteDatabase struct {
	db *sql.DB
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDatabase{db: db}, nil
}

// Close closes the database connection
func (d *SQLiteDatabase) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		kind TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kind, resource_id)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_deleted ON resources(deleted);

	CREATE TABLE IF NOT EXISTS tokens (
		client_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		token_type TEXT NOT NULL DEFAULT '',
		expiry TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (client_id, scope)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// RecordCreated adds a freshly created remote resource to the ledger.
func (d *SQLiteDatabase) RecordCreated(kind, resourceID, title, runID string) error {
	_, err := d.db.Exec(
		`INSERT INTO resources (kind, resource_id, title, run_id, created_at, deleted, deleted_at)
		 VALUES (?, ?, ?, ?, ?, 0, '')
		 ON CONFLICT(kind, resource_id) DO UPDATE SET
		   title = excluded.title, run_id = excluded.run_id, created_at = excluded.created_at,
		   deleted = 0, deleted_at = ''`,
		kind, resourceID, title, runID, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s %s: %w", kind, resourceID, err)
	}
	return nil
}

// MarkDeleted flags a ledger entry as removed from the remote service.
func (d *SQLiteDatabase) MarkDeleted(kind, resourceID string) error {
	res, err := d.db.Exec("UPDATE resources SET deleted = 1, deleted_at = ? WHERE kind = ? AND resource_id = ?",
		time.Now().UTC().Format(timeLayout), kind, resourceID)
	if err != nil {
		return fmt.Errorf("failed to mark %s %s as deleted: %w", kind, resourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark %s %s as deleted: %w", kind, resourceID, err)
	}
	if n == 0 {
		return fmt.Errorf("no ledger entry for %s %q", kind, resourceID)
	}

	return nil
}

// GetAll returns every ledger entry
func (d *SQLiteDatabase) GetAll() ([]Resource, error) {
	return d.GetAllPaginated(0, 0) // 0,0 means no pagination
}

// GetResidue returns resources that were created but never deleted.
func (d *SQLiteDatabase) GetResidue() ([]Resource, error) {
	return d.GetResiduePaginated(0, 0)
}

// GetDeleted returns resources that have been cleaned up.
func (d *SQLiteDatabase) GetDeleted() ([]Resource, error) {
	return d.GetDeletedPaginated(0, 0)
}

// GetAllPaginated returns a paginated list of all ledger entries
func (d *SQLiteDatabase) GetAllPaginated(page, pageSize int) ([]Resource, error) {
	return d.query("", page, pageSize)
}

// GetResiduePaginated returns a paginated list of residue
func (d *SQLiteDatabase) GetResiduePaginated(page, pageSize int) ([]Resource, error) {
	return d.query("WHERE deleted = 0", page, pageSize)
}

// GetDeletedPaginated returns a paginated list of deleted resources
func (d *SQLiteDatabase) GetDeletedPaginated(page, pageSize int) ([]Resource, error) {
	return d.query("WHERE deleted = 1", page, pageSize)
}

func (d *SQLiteDatabase) query(where string, page, pageSize int) ([]Resource, error) {
	query := "SELECT kind, resource_id, title, run_id, created_at, deleted, deleted_at FROM resources"
	if where != "" {
		query += " " + where
	}
	query += " ORDER BY created_at, rowid"
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	return scanResources(rows)
}

// scanResources converts database rows to Resource values
func scanResources(rows *sql.Rows) ([]Resource, error) {
	var resources []Resource

	for rows.Next() {
		var r Resource
		var deleted bool
		var createdAt, deletedAt string

		if err := rows.Scan(&r.Kind, &r.ResourceID, &r.Title, &r.RunID, &createdAt, &deleted, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}

		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		if deletedAt != "" {
			r.DeletedAt, _ = time.Parse(timeLayout, deletedAt)
		}
		r.Deleted = deleted
		resources = append(resources, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resources: %w", err)
	}
	return resources, nil
}
