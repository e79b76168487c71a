// Package mysql is a RecordStore over a single MySQL table of JSON documents.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	drv "github.com/go-sql-driver/mysql"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/domain"
)

const (
	backend          = "mysql"
	errDuplicateKey  = 1062
	maxCreateRetries = 3
)

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

var _ domain.RecordStore = (*Repo)(nil)

type scanner interface{ Scan(dest ...any) error }

// scanRecord decodes one row; the id column is authoritative over the document.
func scanRecord(s scanner) (domain.Record, error) {
	var (
		id  int64
		doc []byte
	)
	if err := s.Scan(&id, &doc); err != nil {
		return nil, err
	}
	r := domain.Record{}
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode doc %d: %w", id, err)
	}
	r[domain.IDField] = float64(id)
	return r, nil
}

func encodeDoc(r domain.Record, id int64) ([]byte, error) {
	doc := r.Clone()
	doc[domain.IDField] = id
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode doc: %w", err)
	}
	return b, nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) GetAll(ctx context.Context, collection string) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_all", collection, err) }()
	return r.query(ctx, selectAllSQL, collection)
}

func (r *Repo) GetByID(ctx context.Context, collection string, id int64) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get", collection, err) }()
	out, err = scanRecord(r.db.QueryRowContext(ctx, selectByIDSQL, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return out, err
}

func (r *Repo) GetByParent(ctx context.Context, collection, parentField string, parentID int64) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_by_parent", collection, err) }()
	if !fieldRe.MatchString(parentField) {
		return nil, fmt.Errorf("parent field %q: %w", parentField, domain.ErrInvalidRecord)
	}
	return r.query(ctx, selectByParentSQL, collection, "$."+parentField, strconv.FormatInt(parentID, 10))
}

// Create assigns max(id)+1 inside a transaction, retrying when a concurrent
// insert takes the same id.
func (r *Repo) Create(ctx context.Context, collection string, rec domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "create", collection, err) }()
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		out, err = r.create(ctx, collection, rec)
		var me *drv.MySQLError
		if errors.As(err, &me) && me.Number == errDuplicateKey {
			continue
		}
		return out, err
	}
	return nil, fmt.Errorf("create %s: %w", collection, domain.ErrConflict)
}

func (r *Repo) create(ctx context.Context, collection string, rec domain.Record) (domain.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.QueryRowContext(ctx, nextIDSQL, collection).Scan(&id); err != nil {
		return nil, err
	}
	doc, err := encodeDoc(rec, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, insertSQL, collection, id, doc); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := rec.Clone()
	out[domain.IDField] = float64(id)
	return out, nil
}

func (r *Repo) Put(ctx context.Context, collection string, rec domain.Record) (err error) {
	defer func() { observability.ObserveStore(backend, "put", collection, err) }()
	id := rec.ID()
	if id <= 0 {
		return fmt.Errorf("put %s: missing id: %w", collection, domain.ErrInvalidRecord)
	}
	doc, err := encodeDoc(rec, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertSQL, collection, id, doc)
	return err
}

func (r *Repo) Update(ctx context.Context, collection string, id int64, patch domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "update", collection, err) }()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanRecord(tx.QueryRowContext(ctx, selectByIDForUpdateSQL, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	merged := cur.Merge(patch)
	doc, err := encodeDoc(merged, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, updateDocSQL, doc, collection, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *Repo) Delete(ctx context.Context, collection string, id int64) (err error) {
	defer func() { observability.ObserveStore(backend, "delete", collection, err) }()
	res, err := r.db.ExecContext(ctx, deleteSQL, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}
