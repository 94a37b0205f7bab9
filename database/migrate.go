package database

import (
	"prolance_backend/internal/models"

	"gorm.io/gorm"
)

// Migrate applies the schema. uuid_generate_v4 defaults on primary
// keys require the uuid-ossp extension.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Milestone{},
		&models.Bid{},
		&models.Bidding{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// Partial unique indexes back the accept-exclusivity guards in the
	// bid repositories: concurrent accepts on different rows of the
	// same scope cannot both commit, the loser hits a unique violation.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_accepted_per_project
			ON bids (project_id) WHERE status = 'accepted'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_biddings_accepted_per_admin_bid
			ON biddings (admin_bid_id) WHERE status = 'accepted'`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
