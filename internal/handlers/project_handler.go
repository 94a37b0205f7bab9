package handlers

import (
	"net/http"

	"prolance_backend/internal/middleware"
	"prolance_backend/internal/models"
	"prolance_backend/internal/services"
	"prolance_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	*BaseHandler
	projectService services.ProjectService
	paymentService services.PaymentService
}

func NewProjectHandler(base *BaseHandler, projectService services.ProjectService, paymentService services.PaymentService) *ProjectHandler {
	return &ProjectHandler{
		BaseHandler:    base,
		projectService: projectService,
		paymentService: paymentService,
	}
}

func (h *ProjectHandler) RegisterRoutes(r *gin.RouterGroup) {
	projects := r.Group("/projects")
	projects.Use(middleware.AuthMiddleware())
	{
		projects.POST("", h.CreateProject)
		projects.GET("/my", h.GetMyProjects)
		projects.GET("/:projectId", h.GetProject)
		projects.GET("/:projectId/progress", h.GetProgress)

		// Lifecycle commands
		projects.POST("/:projectId/post", h.PostProject)
		projects.POST("/:projectId/open-bidding", h.OpenBidding)
		projects.POST("/:projectId/award", h.AwardProject)
		projects.POST("/:projectId/complete", h.CompleteProject)
		projects.POST("/:projectId/hold", h.HoldProject)
		projects.POST("/:projectId/resume", h.ResumeProject)
		projects.POST("/:projectId/cancel", h.CancelProject)

		// Milestones
		projects.POST("/:projectId/milestones", h.AddMilestone)
		projects.PUT("/:projectId/milestones/:milestoneId/status", h.UpdateMilestoneStatus)

		// Milestone payments
		projects.POST("/:projectId/milestones/:milestoneId/payment/request", h.RequestPayment)
		projects.POST("/:projectId/milestones/:milestoneId/payment/cancel", h.CancelPayment)
	}

	admin := r.Group("/admin/projects")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleAgent))
	{
		admin.POST("/:projectId/milestones/:milestoneId/payment/processing", h.MarkPaymentProcessing)
		admin.POST("/:projectId/milestones/:milestoneId/payment/paid", h.MarkPaymentPaid)
		admin.POST("/:projectId/milestones/:milestoneId/payment/failed", h.MarkPaymentFailed)
	}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	project, err := h.projectService.CreateProject(userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Param("projectId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) GetMyProjects(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectService.GetClientProjects(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

func (h *ProjectHandler) GetProgress(c *gin.Context) {
	progress, err := h.projectService.GetProgress(c.Param("projectId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// transition wraps the shared shape of all lifecycle commands.
func (h *ProjectHandler) transition(c *gin.Context, command func(projectID, actorID string) (*models.Project, error)) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	project, err := command(c.Param("projectId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) PostProject(c *gin.Context) {
	h.transition(c, h.projectService.PostProject)
}

func (h *ProjectHandler) OpenBidding(c *gin.Context) {
	h.transition(c, h.projectService.OpenBidding)
}

func (h *ProjectHandler) AwardProject(c *gin.Context) {
	h.transition(c, h.projectService.AwardProject)
}

func (h *ProjectHandler) CompleteProject(c *gin.Context) {
	h.transition(c, h.projectService.CompleteProject)
}

func (h *ProjectHandler) HoldProject(c *gin.Context) {
	h.transition(c, h.projectService.HoldProject)
}

func (h *ProjectHandler) ResumeProject(c *gin.Context) {
	h.transition(c, h.projectService.ResumeProject)
}

func (h *ProjectHandler) CancelProject(c *gin.Context) {
	h.transition(c, h.projectService.CancelProject)
}

func (h *ProjectHandler) AddMilestone(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.AddMilestoneRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	project, err := h.projectService.AddMilestone(c.Param("projectId"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateMilestoneStatus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateMilestoneStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	project, err := h.projectService.UpdateMilestoneStatus(
		c.Param("projectId"),
		c.Param("milestoneId"),
		userID,
		models.MilestoneStatus(req.Status),
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// payment wraps the shared shape of all payment commands.
func (h *ProjectHandler) payment(c *gin.Context, command func(projectID, milestoneID, actorID string) (*models.Milestone, error)) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	milestone, err := command(c.Param("projectId"), c.Param("milestoneId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

func (h *ProjectHandler) RequestPayment(c *gin.Context) {
	h.payment(c, h.paymentService.RequestPayment)
}

func (h *ProjectHandler) MarkPaymentProcessing(c *gin.Context) {
	h.payment(c, h.paymentService.MarkPaymentProcessing)
}

func (h *ProjectHandler) MarkPaymentPaid(c *gin.Context) {
	h.payment(c, h.paymentService.MarkPaymentPaid)
}

func (h *ProjectHandler) MarkPaymentFailed(c *gin.Context) {
	h.payment(c, h.paymentService.MarkPaymentFailed)
}

func (h *ProjectHandler) CancelPayment(c *gin.Context) {
	h.payment(c, h.paymentService.CancelPayment)
}
