package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morshedkoli/macapp/internal/macsvc/db"
	"github.com/morshedkoli/macapp/internal/macsvc/models"
)

const _pgUniqueViolation = "23505"

const recordColumns = `id, name, mac, phone, created_at, updated_at`

type PostgresRecordStore struct {
	db *db.Postgres
}

func NewPostgresRecordStore(conn *db.Postgres) *PostgresRecordStore {
	return &PostgresRecordStore{db: conn}
}

// EnsurePostgresSchema creates the records table with its unique mac
// constraint. Meant to be passed to db.NewPostgres.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS records (
            id         TEXT PRIMARY KEY,
            name       TEXT NOT NULL,
            mac        CHAR(12) NOT NULL,
            phone      TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            CONSTRAINT records_mac_unique UNIQUE (mac)
        );
        CREATE INDEX IF NOT EXISTS records_created_at_idx ON records (created_at DESC);
    `)
	if err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == _pgUniqueViolation
}

func scanRecord(row pgx.Row) (models.Record, error) {
	var r models.Record
	err := row.Scan(&r.ID, &r.Name, &r.Mac, &r.Phone, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PostgresRecordStore) ValidID(id string) bool {
	_, ok := canonicalID(id)
	return ok
}

// canonicalID accepts any form uuid.Parse does (upper case, braces, urn
// prefix) and returns the lower case form the id column holds.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func (s *PostgresRecordStore) Insert(ctx context.Context, rec models.Record) (models.Record, error) {
	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	rec.ID = uuid.NewString()

	query := `
        INSERT INTO records (id, name, mac, phone, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + recordColumns

	created, err := scanRecord(pool.QueryRow(ctx, query,
		rec.ID, rec.Name, rec.Mac, rec.Phone, rec.CreatedAt, rec.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Record{}, ErrDuplicateMac
		}
		return models.Record{}, fmt.Errorf("could not insert record: %w", err)
	}

	return created, nil
}

func (s *PostgresRecordStore) Get(ctx context.Context, id string) (models.Record, error) {
	id, ok := canonicalID(id)
	if !ok {
		return models.Record{}, ErrInvalidID
	}

	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	rec, err := scanRecord(pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Record{}, ErrNotFound
		}
		return models.Record{}, fmt.Errorf("could not get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) Update(ctx context.Context, id string, fields RecordFields, updatedAt time.Time) (models.Record, error) {
	id, ok := canonicalID(id)
	if !ok {
		return models.Record{}, ErrInvalidID
	}

	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	sets := []string{"updated_at = $2"}
	args := []any{id, updatedAt}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	add("name", fields.Name)
	add("mac", fields.Mac)
	add("phone", fields.Phone)

	query := `UPDATE records SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + recordColumns

	rec, err := scanRecord(pool.QueryRow(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return models.Record{}, ErrNotFound
		case isUniqueViolation(err):
			return models.Record{}, ErrDuplicateMac
		}
		return models.Record{}, fmt.Errorf("could not update record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) Delete(ctx context.Context, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return ErrInvalidID
	}

	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) Find(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	query, args := buildFindQuery(filter)

	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not find records: %w", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read records: %w", err)
	}
	return records, nil
}

func buildFindQuery(filter models.RecordFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Name != "" {
		args = append(args, "%"+escapeLike(filter.Name)+"%")
		where = append(where, "name ILIKE $"+strconv.Itoa(len(args)))
	}
	if filter.Phone != "" {
		args = append(args, "%"+escapeLike(filter.Phone)+"%")
		where = append(where, "phone ILIKE $"+strconv.Itoa(len(args)))
	}
	if filter.Mac != "" {
		args = append(args, filter.Mac)
		where = append(where, "mac = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limitOf(filter))
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	return query, args
}

// escapeLike makes % and _ match literally under the default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresRecordStore) Stats(ctx context.Context, since time.Time) (models.RecordStats, error) {
	pool, release, err := s.db.Pool(ctx)
	if err != nil {
		return models.RecordStats{}, err
	}
	defer release()

	var stats models.RecordStats
	err = pool.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE created_at > $1),
               COUNT(DISTINCT mac)
        FROM records
    `, since).Scan(&stats.Total, &stats.Recent, &stats.Unique)
	if err != nil {
		return models.RecordStats{}, fmt.Errorf("could not compute stats: %w", err)
	}
	return stats, nil
}
