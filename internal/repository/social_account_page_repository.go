package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
)

type SocialAccountPageRepository interface {
	Create(ctx context.Context, tx *sql.Tx, page *models.SocialAccountPage) (int64, error)
	GetActive(ctx context.Context, id int64, platform string) (*models.SocialAccountPage, error)
	IsLinkedToBrand(ctx context.Context, pageID, brandID int64) (bool, error)
	ListByAccountID(ctx context.Context, accountID int64) ([]*models.SocialAccountPage, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccountPage, error)
	SetToken(ctx context.Context, pageID int64, oldAccessToken string, page *models.SocialAccountPage) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountPageRepository struct {
	db *sql.DB
}

func NewSocialAccountPageRepository(db *sql.DB) SocialAccountPageRepository {
	return &socialAccountPageRepository{db: db}
}

const pageColumns = `id, social_account_id, platform, page_id, page_kind, name, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at`

func scanPage(row interface{ Scan(...interface{}) error }) (*models.SocialAccountPage, error) {
	var p models.SocialAccountPage
	err := row.Scan(&p.ID, &p.AccountID, &p.Platform, &p.PageID, &p.PageKind, &p.Name,
		&p.AccessToken, &p.RefreshToken, &p.TokenExpiresAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *socialAccountPageRepository) Create(ctx context.Context, tx *sql.Tx, page *models.SocialAccountPage) (int64, error) {
	query := `
		INSERT INTO social_account_pages (social_account_id, platform, page_id, page_kind, name, access_token, refresh_token, token_expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (social_account_id, page_id) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, page.AccountID, page.Platform, page.PageID, page.PageKind,
			page.Name, page.AccessToken, page.RefreshToken, page.TokenExpiresAt, page.IsActive).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, page.AccountID, page.Platform, page.PageID, page.PageKind,
			page.Name, page.AccessToken, page.RefreshToken, page.TokenExpiresAt, page.IsActive).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountPageRepository) GetActive(ctx context.Context, id int64, platform string) (*models.SocialAccountPage, error) {
	query := `SELECT ` + pageColumns + ` FROM social_account_pages WHERE id = $1 AND platform = $2 AND is_active = TRUE`
	page, err := scanPage(r.db.QueryRowContext(ctx, query, id, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return page, nil
}

// IsLinkedToBrand checks the link through the page's parent account.
func (r *socialAccountPageRepository) IsLinkedToBrand(ctx context.Context, pageID, brandID int64) (bool, error) {
	query := `
		SELECT 1
		FROM social_account_pages p
		JOIN social_account_brands sab ON sab.account_id = p.social_account_id
		WHERE p.id = $1 AND sab.brand_id = $2
	`

	var result int
	err := r.db.QueryRowContext(ctx, query, pageID, brandID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialAccountPageRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*models.SocialAccountPage, error) {
	query := `SELECT ` + pageColumns + ` FROM social_account_pages WHERE social_account_id = $1`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.SocialAccountPage
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (r *socialAccountPageRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccountPage, error) {
	query := `SELECT ` + pageColumns + ` FROM social_account_pages WHERE token_expires_at <= $1 AND refresh_token <> '' AND is_active = TRUE`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.SocialAccountPage
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return pages, nil
}

// SetToken mirrors the account repository's compare-and-swap; pages hold
// independent credentials from their parent account.
func (r *socialAccountPageRepository) SetToken(ctx context.Context, pageID int64, oldAccessToken string, page *models.SocialAccountPage) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE social_account_pages
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2;
	`
	result, err := tx.ExecContext(ctx, query, pageID, oldAccessToken, page.AccessToken, page.RefreshToken, page.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token was replaced concurrently")
		return ErrTokenConflict
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountPageRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_account_pages WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
