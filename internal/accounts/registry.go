// Package accounts persists linked social accounts. One row per connection;
// dedupe per (user, platform) happens in Upsert with a read-then-write, the
// schema carries no unique index on the pair.
package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/pulsedash/backend/internal/models"
	"github.com/pulsedash/backend/internal/platforms"
)

var (
	ErrNotFound     = errors.New("social account not found")
	ErrUnauthorized = errors.New("account does not belong to user")
)

type Registry struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Registry {
	return &Registry{db: db, now: time.Now}
}

const accountColumns = `id, user_id, platform, platform_user_id, username, account_name,
	access_token, refresh_token, token_expires_at, account_type,
	manual_metrics, metrics, last_synced, connected_at`

// Upsert links the platform identity to the user, reusing the existing row
// when the platform was connected before. Reconnecting refreshes tokens and
// connected_at.
func (r *Registry) Upsert(ctx context.Context, userID string, platform platforms.Platform, profile platforms.Profile, tok platforms.TokenResult) (*models.SocialAccount, error) {
	now := r.now().UTC()

	var expiresAt *time.Time
	if tok.ExpiresIn > 0 {
		t := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
		expiresAt = &t
	}
	var refresh *string
	if tok.RefreshToken != "" {
		refresh = &tok.RefreshToken
	}

	var existingID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM social_accounts WHERE user_id = $1 AND platform = $2`,
		userID, string(platform)).Scan(&existingID)
	switch {
	case err == nil:
		_, err = r.db.ExecContext(ctx, `
			UPDATE social_accounts
			SET platform_user_id = $1, username = $2, access_token = $3,
				refresh_token = $4, token_expires_at = $5, connected_at = $6
			WHERE id = $7`,
			profile.PlatformUserID, profile.DisplayName, tok.AccessToken,
			refresh, expiresAt, now, existingID)
		if err != nil {
			return nil, fmt.Errorf("update social account: %w", err)
		}
		return r.GetByID(ctx, existingID)
	case err == sql.ErrNoRows:
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO social_accounts (id, user_id, platform, platform_user_id, username,
				access_token, refresh_token, token_expires_at, connected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id.String(), userID, string(platform), profile.PlatformUserID, profile.DisplayName,
			tok.AccessToken, refresh, expiresAt, now)
		if err != nil {
			return nil, fmt.Errorf("insert social account: %w", err)
		}
		return r.GetByID(ctx, id.String())
	default:
		return nil, fmt.Errorf("lookup social account: %w", err)
	}
}

func (r *Registry) GetByID(ctx context.Context, accountID string) (*models.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM social_accounts WHERE id = $1`, accountID)
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get social account: %w", err)
	}
	return acc, nil
}

// GetOwned loads the account and enforces ownership.
func (r *Registry) GetOwned(ctx context.Context, accountID, userID string) (*models.SocialAccount, error) {
	acc, err := r.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.UserID != userID {
		return nil, ErrUnauthorized
	}
	return acc, nil
}

func (r *Registry) ListByUser(ctx context.Context, userID string) ([]models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM social_accounts WHERE user_id = $1 ORDER BY connected_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListAll feeds the background sync worker.
func (r *Registry) ListAll(ctx context.Context) ([]models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM social_accounts ORDER BY connected_at`)
	if err != nil {
		return nil, fmt.Errorf("list all social accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// Disconnect removes the link. The row stays put when the caller does not
// own it.
func (r *Registry) Disconnect(ctx context.Context, accountID, userID string) error {
	if _, err := r.GetOwned(ctx, accountID, userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM social_accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return fmt.Errorf("disconnect social account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSync persists the metrics snapshot and advances last_synced.
func (r *Registry) SaveSync(ctx context.Context, accountID string, metrics models.AccountMetrics, syncedAt time.Time) error {
	raw, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts SET metrics = $1, last_synced = $2 WHERE id = $3`,
		raw, syncedAt.UTC(), accountID)
	if err != nil {
		return fmt.Errorf("save sync result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAccountType flips a LinkedIn account between personal and company.
func (r *Registry) SetAccountType(ctx context.Context, accountID, accountType string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts SET account_type = $1 WHERE id = $2`, accountType, accountID)
	if err != nil {
		return fmt.Errorf("set account type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetManualMetrics stores user-supplied numbers for platforms whose APIs
// expose nothing.
func (r *Registry) SetManualMetrics(ctx context.Context, accountID string, manual map[string]int) error {
	raw, err := json.Marshal(manual)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts SET manual_metrics = $1 WHERE id = $2`, raw, accountID)
	if err != nil {
		return fmt.Errorf("set manual metrics: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.SocialAccount, error) {
	var (
		acc         models.SocialAccount
		accountName sql.NullString
		refresh     sql.NullString
		expiresAt   sql.NullTime
		accountType sql.NullString
		manualRaw   []byte
		metricsRaw  []byte
		lastSynced  sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Platform, &acc.PlatformUserID, &acc.Username,
		&accountName, &acc.AccessToken, &refresh, &expiresAt, &accountType,
		&manualRaw, &metricsRaw, &lastSynced, &acc.ConnectedAt)
	if err != nil {
		return nil, err
	}
	if accountName.Valid {
		acc.AccountName = &accountName.String
	}
	if refresh.Valid {
		acc.RefreshToken = &refresh.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		acc.TokenExpiresAt = &t
	}
	if accountType.Valid {
		acc.AccountType = &accountType.String
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		acc.LastSynced = &t
	}
	if len(manualRaw) > 0 {
		if err := json.Unmarshal(manualRaw, &acc.ManualMetrics); err != nil {
			return nil, fmt.Errorf("decode manual metrics: %w", err)
		}
	}
	if len(metricsRaw) > 0 {
		var m models.AccountMetrics
		if err := json.Unmarshal(metricsRaw, &m); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
		acc.Metrics = &m
	}
	return &acc, nil
}

func collectAccounts(rows *sql.Rows) ([]models.SocialAccount, error) {
	out := []models.SocialAccount{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}
