package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ashwinm7/postdeck/internal/models"
)

type BrandRepository interface {
	Create(ctx context.Context, tx *sql.Tx, brand *models.Brand) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Brand, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Brand, error)
	CheckMembership(ctx context.Context, brandID, userID int64) (bool, error)
	AddMember(ctx context.Context, tx *sql.Tx, brandID, userID int64, role string) error
}

type brandRepository struct {
	db *sql.DB
}

func NewBrandRepository(db *sql.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) Create(ctx context.Context, tx *sql.Tx, brand *models.Brand) (int64, error) {
	query := `
		INSERT INTO brands (owner_id, name)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, brand.OwnerID, brand.Name).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, brand.OwnerID, brand.Name).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *brandRepository) GetByID(ctx context.Context, id int64) (*models.Brand, error) {
	query := `SELECT id, owner_id, name, created_at, updated_at FROM brands WHERE id = $1`

	var brand models.Brand
	err := r.db.QueryRowContext(ctx, query, id).Scan(&brand.ID, &brand.OwnerID, &brand.Name, &brand.CreatedAt, &brand.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &brand, nil
}

func (r *brandRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Brand, error) {
	query := `
		SELECT b.id, b.owner_id, b.name, b.created_at, b.updated_at
		FROM brands b
		JOIN brand_members bm ON bm.brand_id = b.id
		WHERE bm.user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var brands []*models.Brand
	for rows.Next() {
		var brand models.Brand
		err := rows.Scan(&brand.ID, &brand.OwnerID, &brand.Name, &brand.CreatedAt, &brand.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		brands = append(brands, &brand)
	}
	return brands, nil
}

func (r *brandRepository) CheckMembership(ctx context.Context, brandID, userID int64) (bool, error) {
	query := `SELECT 1 FROM brand_members WHERE brand_id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, brandID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *brandRepository) AddMember(ctx context.Context, tx *sql.Tx, brandID, userID int64, role string) error {
	query := `
		INSERT INTO brand_members (brand_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, brandID, userID, role)
	} else {
		_, err = r.db.ExecContext(ctx, query, brandID, userID, role)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
