package services

import (
	"prolance_backend/internal/models"
	"prolance_backend/internal/repositories"
	"prolance_backend/pkg/apperrors"
)

// NotificationService is the recipient-facing surface. Records are
// created by the core components as transition side effects; here the
// recipient can only read, mark read, and dismiss.
type NotificationService interface {
	GetUserNotifications(userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error)
	GetUnreadCount(userID string) (int64, error)
	GetUserStats(userID string) (*repositories.NotificationStats, error)
	MarkAsRead(userID, notificationID string) error
	MarkAllAsRead(userID string) error
	DeleteNotification(userID, notificationID string) error
	CleanOldNotifications(days int) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
}

func NewNotificationService(notificationRepo repositories.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) GetUserNotifications(userID string, criteria repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	return s.notificationRepo.FindUserNotifications(userID, criteria)
}

func (s *notificationService) GetUnreadCount(userID string) (int64, error) {
	return s.notificationRepo.GetUnreadCount(userID)
}

func (s *notificationService) GetUserStats(userID string) (*repositories.NotificationStats, error) {
	return s.notificationRepo.GetUserStats(userID)
}

func (s *notificationService) MarkAsRead(userID, notificationID string) error {
	notification, err := s.notificationRepo.FindByID(notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return apperrors.ErrInsufficientPermissions
	}
	return s.notificationRepo.MarkAsRead(notificationID)
}

func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.notificationRepo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(userID, notificationID string) error {
	notification, err := s.notificationRepo.FindByID(notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return apperrors.ErrInsufficientPermissions
	}
	return s.notificationRepo.Delete(notificationID)
}

func (s *notificationService) CleanOldNotifications(days int) error {
	return s.notificationRepo.CleanOld(days)
}
