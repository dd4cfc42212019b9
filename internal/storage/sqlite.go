package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Container operations

// createContainerWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createContainerWithQuerier(ctx context.Context, q querier, c *Container) error {
	query := `
		INSERT INTO containers (name, root_path, kind, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if c.Kind == "" {
		c.Kind = KindSource
	}
	if c.IndexVersion == "" {
		c.IndexVersion = CurrentSchemaVersion
	}
	now := time.Now()
	result, err := q.ExecContext(ctx, query, c.Name, c.RootPath, c.Kind, c.IndexVersion, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("container %s: %w", c.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create container: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateContainer(ctx context.Context, c *Container) error {
	return s.createContainerWithQuerier(ctx, s.querier(), c)
}

const containerColumns = `id, name, root_path, kind, total_documents, index_version, last_indexed_at, created_at, updated_at`

func scanContainer(row interface{ Scan(...interface{}) error }) (*Container, error) {
	var c Container
	var lastIndexedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.RootPath, &c.Kind, &c.TotalDocuments, &c.IndexVersion,
		&lastIndexedAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		c.LastIndexedAt = lastIndexedAt.Time
	}
	return &c, nil
}

// getContainerWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getContainerWithQuerier(ctx context.Context, q querier, name string) (*Container, error) {
	row := q.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM containers WHERE name = ?`, name)
	return scanContainer(row)
}

func (s *SQLiteStorage) GetContainer(ctx context.Context, name string) (*Container, error) {
	return s.getContainerWithQuerier(ctx, s.querier(), name)
}

// updateContainerWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateContainerWithQuerier(ctx context.Context, q querier, c *Container) error {
	query := `
		UPDATE containers
		SET root_path = ?, kind = ?, total_documents = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query, c.RootPath, c.Kind, c.TotalDocuments, c.LastIndexedAt, now, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateContainer(ctx context.Context, c *Container) error {
	return s.updateContainerWithQuerier(ctx, s.querier(), c)
}

func (s *SQLiteStorage) listContainersWithQuerier(ctx context.Context, q querier) ([]*Container, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+containerColumns+` FROM containers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListContainers(ctx context.Context) ([]*Container, error) {
	return s.listContainersWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) deleteContainerWithQuerier(ctx context.Context, q querier, containerID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM containers WHERE id = ?", containerID)
	return err
}

func (s *SQLiteStorage) DeleteContainer(ctx context.Context, containerID int64) error {
	return s.deleteContainerWithQuerier(ctx, s.querier(), containerID)
}

// Document operations

// upsertDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	query := `
		INSERT INTO documents (container_id, path, package_name, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(container_id, path) DO UPDATE SET
			package_name = excluded.package_name,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		doc.ContainerID, doc.Path, doc.PackageName, int64(doc.ContentHash), doc.ModTime, doc.SizeBytes,
		doc.ParseError, now, now, now).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	doc.LastIndexedAt = now
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	return s.upsertDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `id, container_id, path, package_name, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var doc Document
	var pkg sql.NullString
	var hash int64
	var modTime, lastIndexedAt sql.NullTime
	var size sql.NullInt64
	var parseError sql.NullString
	err := row.Scan(&doc.ID, &doc.ContainerID, &doc.Path, &pkg, &hash, &modTime, &size,
		&parseError, &lastIndexedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.PackageName = pkg.String
	doc.ContentHash = uint64(hash)
	doc.SizeBytes = size.Int64
	if modTime.Valid {
		doc.ModTime = modTime.Time
	}
	if lastIndexedAt.Valid {
		doc.LastIndexedAt = lastIndexedAt.Time
	}
	if parseError.Valid {
		doc.ParseError = &parseError.String
	}
	return &doc, nil
}

// getDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, containerID int64, path string) (*Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE container_id = ? AND path = ?`, containerID, path)
	return scanDocument(row)
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, containerID int64, path string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), containerID, path)
}

func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier, containerID int64) ([]*Document, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE container_id = ? ORDER BY path`, containerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context, containerID int64) ([]*Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier(), containerID)
}

func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, documentID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	return err
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), documentID)
}

// Index entry operations

// replaceEntriesWithQuerier deletes the entries of a document and inserts
// the new ones. Callers wanting atomicity run it inside a transaction.
func (s *SQLiteStorage) replaceEntriesWithQuerier(ctx context.Context, q querier, documentID int64, entries []IndexEntry) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM index_entries WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	// Insert in batches to stay under the SQLite variable limit
	const batchSize = 300
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*3)
		for i, e := range batch {
			placeholders[i] = "(?, ?, ?)"
			args = append(args, documentID, e.Category, e.Key)
		}
		query := "INSERT INTO index_entries (document_id, category, key) VALUES " + strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert entries: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ReplaceEntries(ctx context.Context, documentID int64, entries []IndexEntry) error {
	return s.replaceEntriesWithQuerier(ctx, s.querier(), documentID, entries)
}

func (s *SQLiteStorage) listEntriesWithQuerier(ctx context.Context, q querier, documentID int64) ([]IndexEntry, error) {
	rows, err := q.QueryContext(ctx, "SELECT category, key FROM index_entries WHERE document_id = ? ORDER BY id", documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []IndexEntry
	for rows.Next() {
		var e IndexEntry
		if err := rows.Scan(&e.Category, &e.Key); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListEntries(ctx context.Context, documentID int64) ([]IndexEntry, error) {
	return s.listEntriesWithQuerier(ctx, s.querier(), documentID)
}

// escapeLike escapes the LIKE wildcards of a literal prefix
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStorage) findDocumentsWithQuerier(ctx context.Context, q querier, containerID int64, category, keyPrefix string) ([]string, error) {
	query := `
		SELECT DISTINCT d.path
		FROM index_entries e
		JOIN documents d ON e.document_id = d.id
		WHERE d.container_id = ? AND e.category = ? AND e.key LIKE ? ESCAPE '\'
		ORDER BY d.path
	`
	rows, err := q.QueryContext(ctx, query, containerID, category, escapeLike(keyPrefix)+"%")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindDocuments returns the paths of the documents holding a key of category
// that starts with keyPrefix. LIKE is case-insensitive for ASCII, so callers
// needing exact case filter the result.
func (s *SQLiteStorage) FindDocuments(ctx context.Context, containerID int64, category, keyPrefix string) ([]string, error) {
	return s.findDocumentsWithQuerier(ctx, s.querier(), containerID, category, keyPrefix)
}

// Evaluation session operations

func (s *SQLiteStorage) createSessionWithQuerier(ctx context.Context, q querier, session *EvalSession) error {
	now := time.Now()
	_, err := q.ExecContext(ctx,
		"INSERT INTO eval_sessions (id, declaring_type, created_at) VALUES (?, ?, ?)",
		session.ID, session.DeclaringType, now)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateSession(ctx context.Context, session *EvalSession) error {
	return s.createSessionWithQuerier(ctx, s.querier(), session)
}

func (s *SQLiteStorage) closeSessionWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "UPDATE eval_sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) CloseSession(ctx context.Context, id string) error {
	return s.closeSessionWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) listSessionsWithQuerier(ctx context.Context, q querier, openOnly bool) ([]*EvalSession, error) {
	query := "SELECT id, declaring_type, created_at, closed_at FROM eval_sessions"
	if openOnly {
		query += " WHERE closed_at IS NULL"
	}
	query += " ORDER BY created_at"
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*EvalSession
	for rows.Next() {
		var session EvalSession
		var declaring sql.NullString
		var closedAt sql.NullTime
		if err := rows.Scan(&session.ID, &declaring, &session.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		session.DeclaringType = declaring.String
		if closedAt.Valid {
			t := closedAt.Time
			session.ClosedAt = &t
		}
		out = append(out, &session)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListSessions(ctx context.Context, openOnly bool) ([]*EvalSession, error) {
	return s.listSessionsWithQuerier(ctx, s.querier(), openOnly)
}

// Status operations

// GetStatus retrieves indexing statistics for a container
func (s *SQLiteStorage) GetStatus(ctx context.Context, containerID int64) (*ContainerStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), containerID)
}

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, containerID int64) (*ContainerStatus, error) {
	row := q.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = ?`, containerID)
	container, err := scanContainer(row)
	if err != nil {
		return nil, err
	}

	status := &ContainerStatus{
		Container:     container,
		LastIndexedAt: container.LastIndexedAt,
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN parse_error IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM documents WHERE container_id = ?
	`, containerID).Scan(&status.DocumentsCount, &status.ParseErrors)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM index_entries e
		JOIN documents d ON e.document_id = d.id
		WHERE d.container_id = ?
	`, containerID).Scan(&status.EntriesCount)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		EntriesIndexed:     status.EntriesCount > 0,
	}
	return status, nil
}

// Transaction implementations route every call through the transaction querier

func (t *sqliteTx) CreateContainer(ctx context.Context, c *Container) error {
	return t.storage.createContainerWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) GetContainer(ctx context.Context, name string) (*Container, error) {
	return t.storage.getContainerWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) UpdateContainer(ctx context.Context, c *Container) error {
	return t.storage.updateContainerWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) ListContainers(ctx context.Context) ([]*Container, error) {
	return t.storage.listContainersWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteContainer(ctx context.Context, containerID int64) error {
	return t.storage.deleteContainerWithQuerier(ctx, t.querier(), containerID)
}

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return t.storage.upsertDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, containerID int64, path string) (*Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.querier(), containerID, path)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, containerID int64) ([]*Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier(), containerID)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, documentID int64) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) ReplaceEntries(ctx context.Context, documentID int64, entries []IndexEntry) error {
	return t.storage.replaceEntriesWithQuerier(ctx, t.querier(), documentID, entries)
}

func (t *sqliteTx) ListEntries(ctx context.Context, documentID int64) ([]IndexEntry, error) {
	return t.storage.listEntriesWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) FindDocuments(ctx context.Context, containerID int64, category, keyPrefix string) ([]string, error) {
	return t.storage.findDocumentsWithQuerier(ctx, t.querier(), containerID, category, keyPrefix)
}

func (t *sqliteTx) CreateSession(ctx context.Context, session *EvalSession) error {
	return t.storage.createSessionWithQuerier(ctx, t.querier(), session)
}

func (t *sqliteTx) CloseSession(ctx context.Context, id string) error {
	return t.storage.closeSessionWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListSessions(ctx context.Context, openOnly bool) ([]*EvalSession, error) {
	return t.storage.listSessionsWithQuerier(ctx, t.querier(), openOnly)
}

func (t *sqliteTx) GetStatus(ctx context.Context, containerID int64) (*ContainerStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), containerID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
