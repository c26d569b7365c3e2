package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/ashwinm7/postdeck/configs"
	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
	"github.com/ashwinm7/postdeck/pkg/crypto"
)

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListPages(ctx context.Context, userID, accountID int64) ([]*models.SocialAccountPage, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg     config.Config
	sa      repository.SocialAccountRepository
	sp      repository.SocialAccountPageRepository
	cryptor crypto.Cryptor
	reddit  RedditService
}

func NewPlatformService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	sp repository.SocialAccountPageRepository,
	cryptor crypto.Cryptor,
	reddit RedditService) PlatformService {
	return &platformService{
		cfg:     cfg,
		sa:      sa,
		sp:      sp,
		cryptor: cryptor,
		reddit:  reddit,
	}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *platformService) ListPages(ctx context.Context, userID, accountID int64) ([]*models.SocialAccountPage, error) {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.sp.ListByAccountID(ctx, accountID)
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Unable to get social account info")
	}

	if accountInfo.Platform == models.PlatformReddit && accountInfo.RefreshToken != "" {
		decryptedRefreshToken, err := s.cryptor.Decrypt(accountInfo.RefreshToken)
		if err != nil {
			return err
		}

		if err := s.reddit.RevokeAccess(ctx, decryptedRefreshToken); err != nil {
			// The row is removed regardless; a dangling grant on reddit's
			// side expires on its own.
			slog.Info("reddit revoke failed", "account_id", accountID, "error", err)
		}
	}

	err = s.sa.Remove(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Error removing account Info")
	}

	return nil
}
