package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/internal/entity"
	notifRepo "skillbridge.io/marketplace/internal/modules/notification/repository"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/logger"
)

// Channel returns the redis pub/sub channel carrying live notifications for userID.
func Channel(userID string) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

type NotificationList struct {
	Notifications []entity.Notification     `json:"notifications"`
	Pagination    commonDto.PaginationMeta `json:"pagination"`
}

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, page commonDto.PaginationQuery) (*NotificationList, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, log logrus.FieldLogger) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		log:         log,
		now:         time.Now,
	}
}

// CreateNotification persists the notification and, when redis is available,
// pushes it to the recipient's live channel.
func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err != nil {
			return err
		}
		if err := s.redisClient.Publish(ctx, Channel(notification.UserID.String()), payload).Err(); err != nil {
			logger.FromContext(ctx, s.log).WithError(err).WithField("user_id", notification.UserID).Warn("failed to publish notification")
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page commonDto.PaginationQuery) (*NotificationList, error) {
	offset := page.Normalize()
	notifications, total, err := s.repo.ListByUser(ctx, userID, page.Limit, offset)
	if err != nil {
		return nil, apperror.Dependency("notification.list", err)
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}
	return &NotificationList{
		Notifications: notifications,
		Pagination:    commonDto.NewPaginationMeta(page.Page, page.Limit, total),
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return apperror.Dependency("notification.mark_read", err)
	}
	if !found {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperror.Dependency("notification.mark_all_read", err)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Dependency("notification.count_unread", err)
	}
	return n, nil
}

func (s *notificationService) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.DeleteReadBefore(ctx, s.now().Add(-olderThan))
}
