package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
)

type NotificationService interface {
	List(ctx context.Context, userID int64, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

type notificationService struct {
	n repository.NotificationRepository
}

func NewNotificationService(n repository.NotificationRepository) NotificationService {
	return &notificationService{
		n: n,
	}
}

func (s *notificationService) List(ctx context.Context, userID int64, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.n.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("Error getting notifications")
	}

	return notifications, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return s.n.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if notificationID == 0 {
		err := errors.New("notification id is not valid")
		slog.Info(err.Error())
		return err
	}

	return s.n.MarkRead(ctx, notificationID, userID)
}
