// Package postgres is a RecordStore over a JSONB table, using a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/domain"
)

const backend = "postgres"

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Connect opens and pings a pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

var _ domain.RecordStore = (*Store)(nil)

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		id  int64
		doc []byte
	)
	if err := row.Scan(&id, &doc); err != nil {
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

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, q, args...)
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

func (s *Store) GetAll(ctx context.Context, collection string) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_all", collection, err) }()
	return s.query(ctx, `SELECT id, doc FROM records WHERE collection = $1 ORDER BY id`, collection)
}

func (s *Store) GetByID(ctx context.Context, collection string, id int64) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get", collection, err) }()
	out, err = scanRecord(s.pool.QueryRow(ctx,
		`SELECT id, doc FROM records WHERE collection = $1 AND id = $2`, collection, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return out, err
}

// GetByParent compares the field's text form, so numeric and string ids both match.
func (s *Store) GetByParent(ctx context.Context, collection, parentField string, parentID int64) (out []domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "get_by_parent", collection, err) }()
	if !fieldRe.MatchString(parentField) {
		return nil, fmt.Errorf("parent field %q: %w", parentField, domain.ErrInvalidRecord)
	}
	return s.query(ctx,
		`SELECT id, doc FROM records WHERE collection = $1 AND doc->>$2 = $3 ORDER BY id`,
		collection, parentField, strconv.FormatInt(parentID, 10))
}

// Create serializes id assignment per collection with a transaction-scoped advisory lock.
func (s *Store) Create(ctx context.Context, collection string, rec domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "create", collection, err) }()
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, collection); err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE collection = $1`, collection).Scan(&id); err != nil {
			return err
		}
		doc, err := encodeDoc(rec, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO records (collection, id, doc) VALUES ($1, $2, $3)`, collection, id, doc); err != nil {
			return err
		}
		out = rec.Clone()
		out[domain.IDField] = float64(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, collection string, rec domain.Record) (err error) {
	defer func() { observability.ObserveStore(backend, "put", collection, err) }()
	id := rec.ID()
	if id <= 0 {
		return fmt.Errorf("put %s: missing id: %w", collection, domain.ErrInvalidRecord)
	}
	doc, err := encodeDoc(rec, id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO records (collection, id, doc) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, doc)
	return err
}

func (s *Store) Update(ctx context.Context, collection string, id int64, patch domain.Record) (out domain.Record, err error) {
	defer func() { observability.ObserveStore(backend, "update", collection, err) }()
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanRecord(tx.QueryRow(ctx,
			`SELECT id, doc FROM records WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		merged := cur.Merge(patch)
		doc, err := encodeDoc(merged, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE records SET doc = $1, updated_at = now() WHERE collection = $2 AND id = $3`,
			doc, collection, id); err != nil {
			return err
		}
		out = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, collection string, id int64) (err error) {
	defer func() { observability.ObserveStore(backend, "delete", collection, err) }()
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}
