package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
)

const (
	BrandRoleOwner  = "owner"
	BrandRoleMember = "member"
)

type BrandService interface {
	Create(ctx context.Context, userID int64, name string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Brand, error)
	AddMember(ctx context.Context, userID, brandID, memberID int64) error
}

type brandService struct {
	db *sql.DB
	br repository.BrandRepository
}

func NewBrandService(db *sql.DB, br repository.BrandRepository) BrandService {
	return &brandService{
		db: db,
		br: br,
	}
}

func (s *brandService) Create(ctx context.Context, userID int64, name string) (int64, error) {
	if name == "" {
		err := errors.New("brand name cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	brandID, err := s.br.Create(ctx, tx, &models.Brand{
		OwnerID: userID,
		Name:    name,
	})
	if err != nil {
		return 0, fmt.Errorf("error creating brand: %w", err)
	}

	// The owner is also a member; membership is what account sharing and
	// publish authorization key off.
	if err = s.br.AddMember(ctx, tx, brandID, userID, BrandRoleOwner); err != nil {
		return 0, fmt.Errorf("error adding brand owner: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return brandID, nil
}

func (s *brandService) List(ctx context.Context, userID int64) ([]*models.Brand, error) {
	brands, err := s.br.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting brands")
	}
	return brands, nil
}

func (s *brandService) AddMember(ctx context.Context, userID, brandID, memberID int64) error {
	brand, err := s.br.GetByID(ctx, brandID)
	if err != nil {
		return fmt.Errorf("Error getting brand info")
	}

	if brand.OwnerID != userID {
		err = errors.New("only the brand owner can add members")
		slog.Info(err.Error())
		return err
	}

	if err := s.br.AddMember(ctx, nil, brandID, memberID, BrandRoleMember); err != nil {
		return fmt.Errorf("error adding brand member: %w", err)
	}

	return nil
}
