package repositories

import (
	"errors"
	"time"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(id string) (*models.Project, error)

	// SaveIfVersion persists the whole aggregate (project row, embedded
	// milestones, outbox notifications) in a single transaction,
	// conditioned on the version being unchanged since the read.
	// Returns apperrors.ErrConcurrentModification on a version race.
	SaveIfVersion(project *models.Project, expectedVersion int64, outbox []*models.Notification) error

	FindByClient(clientID string) ([]models.Project, error)
	FindStaleBidding(olderThan time.Time) ([]models.Project, error)
	FindWithPaymentStatus(status models.MilestonePaymentStatus, olderThan time.Time) ([]models.Project, error)
}

type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *ProjectRepositoryImpl) FindByID(id string) (*models.Project, error) {
	var project models.Project
	err := r.db.Preload("Milestones", func(db *gorm.DB) *gorm.DB {
		return db.Order("milestones.created_at ASC")
	}).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepositoryImpl) SaveIfVersion(project *models.Project, expectedVersion int64, outbox []*models.Notification) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND version = ?", project.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":                 project.Status,
				"prior_status":           project.PriorStatus,
				"assigned_freelancer_id": project.AssignedFreelancerID,
				"agent_id":               project.AgentID,
				"title":                  project.Title,
				"description":            project.Description,
				"budget":                 project.Budget,
				"version":                expectedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// either the project vanished or someone got there first
			var count int64
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperrors.ErrProjectNotFound
			}
			return apperrors.ErrConcurrentModification
		}

		// milestones are part of the aggregate and ride the same
		// version check as the project row
		for i := range project.Milestones {
			m := &project.Milestones[i]
			m.ProjectID = project.ID
			if m.ID == "" {
				if err := tx.Create(m).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Save(m).Error; err != nil {
					return err
				}
			}
		}

		// outbox: the transition and its notifications commit together
		for _, n := range outbox {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}

		project.Version = expectedVersion + 1
		return nil
	})
}

func (r *ProjectRepositoryImpl) FindByClient(clientID string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Preload("Milestones").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepositoryImpl) FindStaleBidding(olderThan time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Preload("Milestones").
		Where("status = ? AND updated_at < ?", models.ProjectStatusInBidding, olderThan).
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepositoryImpl) FindWithPaymentStatus(status models.MilestonePaymentStatus, olderThan time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Preload("Milestones").
		Joins("JOIN milestones ON milestones.project_id = projects.id").
		Where("milestones.payment_status = ? AND milestones.updated_at < ?", status, olderThan).
		Distinct("projects.*").
		Find(&projects).Error
	return projects, err
}
