package models

import (
	"time"

	"github.com/google/uuid"
)

// BotStatus is derived while a fine-tune job for the bot is non-terminal:
// `training` iff at least one job is in flight, `active` after a success,
// `inactive` after a failure or cancellation.
type BotStatus string

const (
	BotStatusActive   BotStatus = "active"
	BotStatusInactive BotStatus = "inactive"
	BotStatusTraining BotStatus = "training"
	BotStatusError    BotStatus = "error"
)

type Bot struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        DatasetType `json:"type"`
	Model       string      `json:"model,omitempty"`
	Status      BotStatus   `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
