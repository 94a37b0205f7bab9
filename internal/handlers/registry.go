package handlers

type AppHandlers struct {
	AuthHandler         *AuthHandler
	ProjectHandler      *ProjectHandler
	BidHandler          *BidHandler
	NotificationHandler *NotificationHandler
}
