package models

type UserStatus string
type UserRole string
type ProjectStatus string
type MilestoneStatus string
type MilestonePaymentStatus string
type BidStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	UserRoleClient     UserRole = "client"
	UserRoleFreelancer UserRole = "freelancer"
	UserRoleAgent      UserRole = "agent"
	UserRoleAdmin      UserRole = "admin"

	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusActive     ProjectStatus = "active"
	ProjectStatusInBidding  ProjectStatus = "in_bidding"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusHold       ProjectStatus = "hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"

	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
	MilestoneStatusHold       MilestoneStatus = "hold"

	PaymentStatusNotRequested MilestonePaymentStatus = "not_requested"
	PaymentStatusRequested    MilestonePaymentStatus = "payment_requested"
	PaymentStatusProcessing   MilestonePaymentStatus = "processing"
	PaymentStatusPaid         MilestonePaymentStatus = "paid"
	PaymentStatusFailed       MilestonePaymentStatus = "failed"
	PaymentStatusCancelled    MilestonePaymentStatus = "cancelled"

	BidStatusPending   BidStatus = "pending"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
)
