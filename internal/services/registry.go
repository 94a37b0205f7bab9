package services

import (
	"prolance_backend/internal/email"
	"prolance_backend/internal/fanout"
)

type ServiceContainer struct {
	AuthService         AuthService
	ProjectService      ProjectService
	BidService          BidService
	BiddingService      BiddingService
	PaymentService      PaymentService
	NotificationService NotificationService
	FanoutService       *fanout.Service
	EmailService        email.Provider
}
