package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is one member's ballot on a disputed incident. There is at most one
// row per (incident, user); casting again overwrites Confirm.
type Vote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IncidentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_incident_user,priority:1" json:"incident_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_incident_user,priority:2" json:"user_id"`
	Confirm    bool      `gorm:"not null" json:"confirm"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
