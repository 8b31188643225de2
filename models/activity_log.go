package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityIncidentCreated   = "incident_created"
	ActivityIncidentAccepted  = "incident_accepted"
	ActivityIncidentDisputed  = "incident_disputed"
	ActivityIncidentConfirmed = "incident_confirmed"
	ActivityIncidentRejected  = "incident_rejected"
	ActivityVoteCast          = "vote_cast"
)

// ActivityLog is the append-only audit trail of incident lifecycle events.
// UserID is nil when the system caused the event.
type ActivityLog struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	IncidentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"incidentId"`
	GroupID    uuid.UUID  `gorm:"type:uuid;not null" json:"groupId"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"userId"`
	Activity   string     `gorm:"not null;type:varchar(50)" json:"activity"` // "incident_created", "vote_cast", etc.
	Points     int        `gorm:"not null;default:0" json:"points"`
}
