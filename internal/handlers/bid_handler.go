package handlers

import (
	"net/http"

	"prolance_backend/internal/middleware"
	"prolance_backend/internal/models"
	"prolance_backend/internal/services"
	"prolance_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type BidHandler struct {
	*BaseHandler
	bidService     services.BidService
	biddingService services.BiddingService
}

func NewBidHandler(base *BaseHandler, bidService services.BidService, biddingService services.BiddingService) *BidHandler {
	return &BidHandler{
		BaseHandler:    base,
		bidService:     bidService,
		biddingService: biddingService,
	}
}

func (h *BidHandler) RegisterRoutes(r *gin.RouterGroup) {
	bids := r.Group("")
	bids.Use(middleware.AuthMiddleware())
	{
		bids.POST("/projects/:projectId/bids", h.SubmitBid)
		bids.GET("/projects/:projectId/bids", h.GetProjectBids)
		bids.GET("/projects/:projectId/bids/stats", h.GetBidStats)

		bids.GET("/bids/:bidId", h.GetBid)
		bids.POST("/bids/:bidId/withdraw", h.WithdrawBid)
		bids.POST("/bids/:bidId/undo-withdrawal", h.UndoWithdrawal)

		// Second-tier offers: freelancers bidding under an admin's bid
		bids.POST("/bids/:bidId/biddings", h.SubmitBidding)
		bids.GET("/bids/:bidId/biddings", h.GetAdminBidBiddings)
	}

	staff := r.Group("")
	staff.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleAgent))
	{
		staff.POST("/bids/:bidId/accept", h.AcceptBid)
		staff.POST("/bids/:bidId/decline", h.DeclineBid)
		staff.PUT("/bids/:bidId/flags", h.UpdateBidFlags)

		staff.POST("/biddings/:biddingId/accept", h.AcceptBidding)
		staff.POST("/biddings/:biddingId/decline", h.DeclineBidding)
	}
}

func (h *BidHandler) SubmitBid(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitBidRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	bid, err := h.bidService.SubmitBid(userID, c.Param("projectId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

func (h *BidHandler) GetBid(c *gin.Context) {
	bid, err := h.bidService.GetBid(c.Param("bidId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) GetProjectBids(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bids, err := h.bidService.GetProjectBids(c.Param("projectId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
}

func (h *BidHandler) GetBidStats(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	stats, err := h.bidService.GetBidStats(c.Param("projectId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *BidHandler) AcceptBid(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	project, err := h.bidService.AcceptBid(c.Param("bidId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *BidHandler) DeclineBid(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bid, err := h.bidService.DeclineBid(c.Param("bidId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) WithdrawBid(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bid, err := h.bidService.WithdrawBid(c.Param("bidId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) UndoWithdrawal(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bid, err := h.bidService.UndoWithdrawal(c.Param("bidId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) UpdateBidFlags(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateBidFlagsRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	bid, err := h.bidService.UpdateBidFlags(c.Param("bidId"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *BidHandler) SubmitBidding(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitBiddingRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	bidding, err := h.biddingService.SubmitBidding(userID, c.Param("bidId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bidding)
}

func (h *BidHandler) GetAdminBidBiddings(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	biddings, err := h.biddingService.GetAdminBidBiddings(c.Param("bidId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"biddings": biddings, "count": len(biddings)})
}

func (h *BidHandler) AcceptBidding(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bidding, err := h.biddingService.AcceptBidding(c.Param("biddingId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidding)
}

func (h *BidHandler) DeclineBidding(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	bidding, err := h.biddingService.DeclineBidding(c.Param("biddingId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bidding)
}
