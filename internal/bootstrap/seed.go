package bootstrap

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
)

const demoPassword = "password123"

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Project{},
		&entity.Proposal{},
		&entity.Notification{},
	)
}

type demoUser struct {
	name    string
	email   string
	role    entity.Role
	profile entity.RoleProfile
}

var demoUsers = []demoUser{
	{
		name:  "Demo Client",
		email: "client@skillbridge.dev",
		role:  entity.RoleClient,
		profile: &entity.ClientProfile{
			Bio:      "Runs a small product studio",
			Company:  "Demo Studio",
			Location: "Remote",
		},
	},
	{
		name:  "Demo Freelancer",
		email: "freelancer@skillbridge.dev",
		role:  entity.RoleFreelancer,
		profile: &entity.FreelancerProfile{
			Bio:          "Full-stack developer",
			Skills:       []string{"go", "react", "postgresql"},
			HourlyRate:   45,
			Portfolio:    []string{},
			Location:     "Remote",
			Availability: "available",
		},
	},
}

// SeedDemoUsers creates one client and one freelancer for local development.
// Existing accounts are left alone.
func SeedDemoUsers(db *gorm.DB, log logrus.FieldLogger) error {
	for _, demo := range demoUsers {
		var count int64
		if err := db.Model(&entity.User{}).
			Where("email = ?", demo.email).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			log.WithField("email", demo.email).Debug("demo user already exists, skipping seed")
			continue
		}

		hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := entity.User{
			Name:         demo.name,
			Email:        demo.email,
			PasswordHash: string(hashedPasswordBytes),
			Role:         demo.role,
		}
		if err := user.SetProfile(demo.profile); err != nil {
			return err
		}

		if err := db.Create(&user).Error; err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"email":     demo.email,
			"user_type": demo.role,
		}).Info("demo user seeded")
	}

	return nil
}
