package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

const uniqueViolation = "23505"

const createProfilesTable = `
	CREATE TABLE IF NOT EXISTS profiles (
		owner_id   TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		name       TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner_id, id)
	)`

// PostgresStore implements Service on a PostgreSQL profiles table. The
// normalized record is stored as JSONB; name is copied out for ordering.
type PostgresStore struct {
	db         *pgxpool.Pool
	normalizer *Normalizer
}

// NewPostgresStore creates a PostgreSQL-backed store. Call EnsureSchema once
// before use.
func NewPostgresStore(db *pgxpool.Pool, normalizer *Normalizer) *PostgresStore {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &PostgresStore{db: db, normalizer: normalizer}
}

// EnsureSchema creates the profiles table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createProfilesTable); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error) {
	p, err := s.create(ctx, ownerID, rec)
	audit(ctx, "create", ownerID, idOf(p, rec), err)
	return p, err
}

func (s *PostgresStore) create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error) {
	prepared, err := s.normalizer.PrepareCreate(ctx, rec)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(prepared)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	const q = `
		INSERT INTO profiles (owner_id, id, name, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING data, created_at, updated_at`

	now := time.Now().UTC()
	name, _ := prepared[FieldName].(string)
	row := s.db.QueryRow(ctx, q, ownerID, profileID(prepared), name, data, now)
	p, err := scanProfile(row, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (*Profile, error) {
	const q = `
		SELECT data, created_at, updated_at
		FROM profiles
		WHERE owner_id = $1 AND id = $2`

	return scanProfile(s.db.QueryRow(ctx, q, ownerID, id), ownerID)
}

func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]*Profile, error) {
	const q = `
		SELECT data, created_at, updated_at
		FROM profiles
		WHERE owner_id = $1
		ORDER BY name, id`

	rows, err := s.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows, ownerID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	// Collation order may differ from Go string order.
	sortProfiles(profiles)
	return profiles, nil
}

func (s *PostgresStore) Update(ctx context.Context, ownerID, id string, patch schema.Record) (*Profile, error) {
	var result *Profile

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		const selectQ = `
			SELECT data, created_at, updated_at
			FROM profiles
			WHERE owner_id = $1 AND id = $2
			FOR UPDATE`

		stored, err := scanProfile(tx.QueryRow(ctx, selectQ, ownerID, id), ownerID)
		if err != nil {
			return err
		}

		prepared, err := s.normalizer.PrepareUpdate(ctx, id, stored.Record(), patch)
		if err != nil {
			return err
		}
		data, err := json.Marshal(prepared)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}

		const updateQ = `
			UPDATE profiles
			SET name = $3, data = $4, updated_at = $5
			WHERE owner_id = $1 AND id = $2
			RETURNING data, created_at, updated_at`

		name, _ := prepared[FieldName].(string)
		result, err = scanProfile(tx.QueryRow(ctx, updateQ, ownerID, id, name, data, time.Now().UTC()), ownerID)
		return err
	})

	audit(ctx, "update", ownerID, id, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.delete(ctx, ownerID, id)
	audit(ctx, "delete", ownerID, id, err)
	return err
}

func (s *PostgresStore) delete(ctx context.Context, ownerID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row, ownerID string) (*Profile, error) {
	var (
		data      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&data, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec, err := schema.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	p, err := FromRecord(ownerID, rec)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	return p, nil
}

// Compile-time interface check
var _ Service = (*PostgresStore)(nil)
