package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLStore implements Store on top of database/sql. Documents live in a
// two-column-keyed table with a JSON payload; string-list fields are
// additionally indexed in a side table to serve QueryContains without
// engine-specific JSON operators. Change notifications are in-process
// only.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	notifier *notifier
}

// OpenSQL opens (and if necessary creates) the document tables behind
// the given dialect.
func OpenSQL(dialect Dialect, config DialectConfig) (*SQLStore, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db); err != nil {
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	for _, query := range dialect.SchemaQueries() {
		if _, err := db.Exec(query); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLStore{db: db, dialect: dialect, notifier: newNotifier()}, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := s.dialect.RewriteQuery(
		"SELECT fields, version, updated_at FROM documents WHERE collection = ? AND id = ?")

	var payload string
	var version int64
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&payload, &version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &Document{
		Collection: collection,
		ID:         id,
		Fields:     fields,
		Version:    version,
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *SQLStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts ...SetOption) error {
	o := applyOptions(opts)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := s.dialect.RewriteQuery(
		"SELECT fields, version FROM documents WHERE collection = ? AND id = ?") +
		s.dialect.SelectForUpdateSuffix()

	var existingPayload string
	var currentVersion int64
	err = tx.QueryRowContext(ctx, selectQuery, collection, id).Scan(&existingPayload, &currentVersion)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if o.hasExpected && o.expectedVersion != currentVersion {
		return ErrVersionConflict
	}

	var existingFields map[string]any
	if exists {
		existingFields, err = decodePayload(existingPayload)
		if err != nil {
			return err
		}
	}

	newFields := resolveWrite(existingFields, fields, o.merge, now)
	payload, err := json.Marshal(newFields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if exists {
		updateQuery := s.dialect.RewriteQuery(
			"UPDATE documents SET fields = ?, version = version + 1, updated_at = ? " +
				"WHERE collection = ? AND id = ? AND version = ?")
		result, err := tx.ExecContext(ctx, updateQuery, string(payload), now, collection, id, currentVersion)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return ErrVersionConflict
		}
	} else {
		insertQuery := s.dialect.RewriteQuery(
			"INSERT INTO documents (collection, id, fields, version, updated_at) VALUES (?, ?, ?, 1, ?)")
		if _, err := tx.ExecContext(ctx, insertQuery, collection, id, string(payload), now); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if err := s.reindexKeys(ctx, tx, collection, id, newFields); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notifier.notify(collection, id, &Document{
		Collection: collection,
		ID:         id,
		Fields:     newFields,
		Version:    currentVersion + 1,
		UpdatedAt:  now,
	})
	return nil
}

// reindexKeys rebuilds the membership index rows for every string-list
// field of the document.
func (s *SQLStore) reindexKeys(ctx context.Context, tx *sql.Tx, collection, id string, fields map[string]any) error {
	deleteQuery := s.dialect.RewriteQuery(
		"DELETE FROM document_keys WHERE collection = ? AND id = ?")
	if _, err := tx.ExecContext(ctx, deleteQuery, collection, id); err != nil {
		return fmt.Errorf("failed to clear document keys: %w", err)
	}

	insertQuery := s.dialect.RewriteQuery(
		"INSERT INTO document_keys (collection, id, field, value) VALUES (?, ?, ?, ?)")
	for field, value := range fields {
		for _, item := range stringList(value) {
			if _, err := tx.ExecContext(ctx, insertQuery, collection, id, field, item); err != nil {
				return fmt.Errorf("failed to index document key: %w", err)
			}
		}
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteDoc := s.dialect.RewriteQuery(
		"DELETE FROM documents WHERE collection = ? AND id = ?")
	result, err := tx.ExecContext(ctx, deleteDoc, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	deleteKeys := s.dialect.RewriteQuery(
		"DELETE FROM document_keys WHERE collection = ? AND id = ?")
	if _, err := tx.ExecContext(ctx, deleteKeys, collection, id); err != nil {
		return fmt.Errorf("failed to delete document keys: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if affected > 0 {
		s.notifier.notify(collection, id, nil)
	}
	return nil
}

func (s *SQLStore) QueryContains(ctx context.Context, collection, field, value string) ([]*Document, error) {
	query := s.dialect.RewriteQuery(`
		SELECT d.id, d.fields, d.version, d.updated_at
		FROM documents d
		INNER JOIN document_keys k ON k.collection = d.collection AND k.id = d.id
		WHERE k.collection = ? AND k.field = ? AND k.value = ?
	`)
	rows, err := s.db.QueryContext(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var id, payload string
		var version int64
		var updatedAt time.Time
		if err := rows.Scan(&id, &payload, &version, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, &Document{
			Collection: collection,
			ID:         id,
			Fields:     fields,
			Version:    version,
			UpdatedAt:  updatedAt,
		})
	}
	return out, rows.Err()
}

func (s *SQLStore) ListCollection(ctx context.Context, collection string) ([]*Document, error) {
	query := s.dialect.RewriteQuery(
		"SELECT id, fields, version, updated_at FROM documents WHERE collection = ? ORDER BY id")
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var id, payload string
		var version int64
		var updatedAt time.Time
		if err := rows.Scan(&id, &payload, &version, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, &Document{
			Collection: collection,
			ID:         id,
			Fields:     fields,
			Version:    version,
			UpdatedAt:  updatedAt,
		})
	}
	return out, rows.Err()
}

func (s *SQLStore) Subscribe(ctx context.Context, collection, id string, onChange func(*Document)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.notifier.subscribe(collection, id, onChange), nil
}

func decodePayload(payload string) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, nil
}
