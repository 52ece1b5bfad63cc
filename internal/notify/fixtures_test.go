package notify_test

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventease/backend/internal/models"
)

func registrationFixture(optIn bool) models.Registration {
	return models.Registration{
		ID:                 uuid.NewString(),
		UserID:             "u1",
		EventID:            "9",
		UserName:           "Ada",
		UserEmail:          "ada@example.com",
		RegisteredAt:       time.Now(),
		Status:             models.RegistrationStatusRegistered,
		EmailNotifications: optIn,
	}
}
