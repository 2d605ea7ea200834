package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用した認証トークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// IssueOrReuse はユーザーのトークンを単一のUPSERT文で発行する。
// 有効なトークンが存在する場合は既存のkeyと有効期限を維持する。
func (r *PostgresTokenRepo) IssueOrReuse(ctx context.Context, userID, candidateKey string, expiresAt time.Time) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO auth_tokens (key, user_id, created_at, expires_at)
		 VALUES ($1, $2, now(), $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		     key        = CASE WHEN auth_tokens.expires_at > now() THEN auth_tokens.key ELSE EXCLUDED.key END,
		     created_at = CASE WHEN auth_tokens.expires_at > now() THEN auth_tokens.created_at ELSE EXCLUDED.created_at END,
		     expires_at = CASE WHEN auth_tokens.expires_at > now() THEN auth_tokens.expires_at ELSE EXCLUDED.expires_at END
		 RETURNING key, user_id, created_at, expires_at`,
		candidateKey, userID, expiresAt,
	).Scan(&token.Key, &token.UserID, &token.CreatedAt, &token.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// FindValid は有効期限内のトークンを取得する。見つからない・期限切れの場合はnilを返す。
func (r *PostgresTokenRepo) FindValid(ctx context.Context, key string) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT key, user_id, created_at, expires_at
		 FROM auth_tokens
		 WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&token.Key, &token.UserID, &token.CreatedAt, &token.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	return token, nil
}

// DeleteByUserID はユーザーのトークンを削除する。
func (r *PostgresTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
func (r *PostgresTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
