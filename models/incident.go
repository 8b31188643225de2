package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/types"
	"gorm.io/gorm"
)

// Incident is an accusation (or self-report) of flaky behavior inside a
// group. GroupID, AccuserID, AccusedID, Type and IsSelfReport never change
// after creation; Status, Points and ScoredAt are only written by the
// incident service.
type Incident struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_incidents_group_created,priority:1" json:"group_id"`
	AccuserID    uuid.UUID            `gorm:"type:uuid;not null;index:idx_incidents_accuser_created,priority:1" json:"accuser_id"`
	AccusedID    uuid.UUID            `gorm:"type:uuid;not null;index" json:"accused_id"`
	Type         types.IncidentType   `gorm:"type:varchar(32);not null" json:"type"`
	Severity     types.Severity       `gorm:"type:varchar(16);not null" json:"severity"`
	Note         *string              `gorm:"type:text" json:"note"`
	Status       types.IncidentStatus `gorm:"type:varchar(16);not null;index:idx_incidents_status_expires,priority:1" json:"status"`
	IsSelfReport bool                 `gorm:"not null" json:"is_self_report"`
	Points       int                  `gorm:"not null" json:"points"`
	ExpiresAt    time.Time            `gorm:"not null;index:idx_incidents_status_expires,priority:2" json:"expires_at"`
	ScoredAt     *time.Time           `json:"scored_at"`
	CreatedAt    time.Time            `gorm:"index:idx_incidents_group_created,priority:2;index:idx_incidents_accuser_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
