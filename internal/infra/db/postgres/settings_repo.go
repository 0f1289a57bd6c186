package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/repository"
)

var _ repository.SettingsRepository = (*PostgresSettingsRepo)(nil)

// PostgresSettingsRepo stores one jsonb document per Telegram user.
type PostgresSettingsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSettingsRepo(pool *pgxpool.Pool) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{pool: pool}
}

func (r *PostgresSettingsRepo) Get(ctx context.Context, tgID int64) (model.UserSettings, error) {
	const q = `SELECT settings FROM user_settings WHERE telegram_id=$1;`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, tgID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, dbError("get settings", tgID, err)
	}
	return decodeSettings(raw)
}

func (r *PostgresSettingsRepo) UpdateScalar(ctx context.Context, tgID int64, s model.UserSettings) error {
	const q = `
INSERT INTO user_settings (telegram_id, settings, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  settings = EXCLUDED.settings, updated_at = now();
`
	b, err := encodeSettings(s)
	if err != nil {
		return fmt.Errorf("encode settings for %d: %w", tgID, err)
	}
	if _, err = r.pool.Exec(ctx, q, tgID, string(b)); err != nil {
		return dbError("update settings", tgID, err)
	}
	return nil
}

// UpdateDocument sets or removes a single file-backed key without touching
// the rest of the document.
func (r *PostgresSettingsRepo) UpdateDocument(ctx context.Context, tgID int64, key, path string) error {
	if path == "" {
		const del = `UPDATE user_settings SET settings = settings - $2::text, updated_at = now() WHERE telegram_id=$1;`
		if _, err := r.pool.Exec(ctx, del, tgID, key); err != nil {
			return dbError("remove "+key, tgID, err)
		}
		return nil
	}
	const set = `
INSERT INTO user_settings (telegram_id, settings, updated_at)
VALUES ($1, jsonb_build_object($2::text, $3::text), now())
ON CONFLICT (telegram_id) DO UPDATE SET
  settings = jsonb_set(user_settings.settings, ARRAY[$2::text], to_jsonb($3::text), true),
  updated_at = now();
`
	if _, err := r.pool.Exec(ctx, set, tgID, key, path); err != nil {
		return dbError("set "+key, tgID, err)
	}
	return nil
}

func (r *PostgresSettingsRepo) ListAll(ctx context.Context) (map[int64]model.UserSettings, error) {
	const q = `SELECT telegram_id, settings FROM user_settings ORDER BY telegram_id;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, dbError("list settings", 0, err)
	}
	defer rows.Close()

	out := make(map[int64]model.UserSettings)
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		s, err := decodeSettings(raw)
		if err != nil {
			return nil, fmt.Errorf("settings of %d: %w", id, err)
		}
		out[id] = s
	}
	return out, rows.Err()
}

// dbError names the operation and, for server errors, the SQLSTATE.
func dbError(op string, tgID int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (tg %d): %s [sqlstate %s]: %w", op, tgID, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%s (tg %d): %w", op, tgID, err)
}

// decodeSettings keeps integers exact; UserSettings accessors read json.Number.
func decodeSettings(raw []byte) (model.UserSettings, error) {
	s := model.UserSettings{}
	if len(raw) == 0 {
		return s, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeSettings(s model.UserSettings) ([]byte, error) {
	if s == nil {
		s = model.UserSettings{}
	}
	return json.Marshal(s)
}
