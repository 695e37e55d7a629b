package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/modguard/backend/internal/model"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS operators (
			id BIGSERIAL PRIMARY KEY,
			login_id TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			discord_user_id TEXT NOT NULL DEFAULT '',
			can_raise_alerts BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGSERIAL PRIMARY KEY,
			operator_id BIGINT NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS refresh_tokens_operator_id_idx ON refresh_tokens(operator_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateOperator(ctx context.Context, loginID, passwordHash, discordUserID string) (*model.Operator, error) {
	query := `
		INSERT INTO operators (login_id, password_hash, discord_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, login_id, password_hash, discord_user_id, can_raise_alerts, created_at, updated_at
	`
	var op model.Operator
	err := db.Pool.QueryRow(ctx, query, loginID, passwordHash, discordUserID).Scan(
		&op.ID,
		&op.LoginID,
		&op.PasswordHash,
		&op.DiscordUserID,
		&op.CanRaiseAlerts,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (db *Postgres) GetOperatorByLoginID(ctx context.Context, loginID string) (*model.Operator, error) {
	query := `
		SELECT id, login_id, password_hash, discord_user_id, can_raise_alerts, created_at, updated_at
		FROM operators
		WHERE login_id = $1
	`
	var op model.Operator
	err := db.Pool.QueryRow(ctx, query, loginID).Scan(
		&op.ID,
		&op.LoginID,
		&op.PasswordHash,
		&op.DiscordUserID,
		&op.CanRaiseAlerts,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (db *Postgres) GetOperatorByID(ctx context.Context, operatorID int64) (*model.Operator, error) {
	query := `
		SELECT id, login_id, password_hash, discord_user_id, can_raise_alerts, created_at, updated_at
		FROM operators
		WHERE id = $1
	`
	var op model.Operator
	err := db.Pool.QueryRow(ctx, query, operatorID).Scan(
		&op.ID,
		&op.LoginID,
		&op.PasswordHash,
		&op.DiscordUserID,
		&op.CanRaiseAlerts,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// UpdateOperatorPermission - 로그인 시점에 길드 역할 조회 결과를 반영
func (db *Postgres) UpdateOperatorPermission(ctx context.Context, operatorID int64, canRaiseAlerts bool) error {
	query := `
		UPDATE operators
		SET can_raise_alerts = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, operatorID, canRaiseAlerts)
	return err
}

func (db *Postgres) InsertRefreshToken(ctx context.Context, operatorID int64, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (operator_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := db.Pool.Exec(ctx, query, operatorID, tokenHash, expiresAt)
	return err
}

func (db *Postgres) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	query := `
		SELECT id, operator_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var token model.RefreshToken
	err := db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (db *Postgres) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	_, err := db.Pool.Exec(ctx, query, tokenHash)
	return err
}

func (db *Postgres) RotateRefreshToken(ctx context.Context, oldTokenID int64, operatorID int64, newTokenHash string, newExpiresAt time.Time) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`, oldTokenID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (operator_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`, operatorID, newTokenHash, newExpiresAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func IsNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
