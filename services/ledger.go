package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tally is the current count of ballots by value.
type Tally struct {
	Confirm int64 `json:"confirm_count"`
	Reject  int64 `json:"reject_count"`
}

// VoteLedger owns the votes table. A voter holds at most one ballot per
// incident; the accused never holds one and the accuser only holds the
// confirm ballot cast for them when the incident is disputed.
type VoteLedger struct {
	db      *gorm.DB
	members Membership
	now     Clock
}

func NewVoteLedger(db *gorm.DB, members Membership) *VoteLedger {
	return &VoteLedger{db: db, members: members, now: systemClock}
}

// Cast records or replaces userID's ballot on incident.
func (l *VoteLedger) Cast(ctx context.Context, incident *models.Incident, userID uuid.UUID, confirm bool) error {
	if userID == incident.AccusedID {
		return reason(ErrForbidden, "the accused cannot vote on their own incident")
	}
	if userID == incident.AccuserID {
		return reason(ErrForbidden, "the accuser's ballot is fixed when the incident is disputed")
	}
	active, err := l.members.IsActiveMember(ctx, incident.GroupID, userID)
	if err != nil {
		return err
	}
	if !active {
		return reason(ErrForbidden, "not an active member of this group")
	}

	now := l.now()
	vote := models.Vote{
		IncidentID: incident.ID,
		UserID:     userID,
		Confirm:    confirm,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = dbFromContext(ctx, l.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "incident_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"confirm":    confirm,
			"updated_at": now,
		}),
	}).Create(&vote).Error
	return wrap(err, "upsert vote")
}

// AutoCastAccuserConfirm inserts the accuser's confirm ballot unless one
// already exists. It reports whether a row was written.
func (l *VoteLedger) AutoCastAccuserConfirm(ctx context.Context, incidentID, accuserID uuid.UUID) (bool, error) {
	now := l.now()
	vote := models.Vote{
		IncidentID: incidentID,
		UserID:     accuserID,
		Confirm:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res := dbFromContext(ctx, l.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "incident_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&vote)
	if res.Error != nil {
		return false, wrap(res.Error, "insert accuser ballot")
	}
	return res.RowsAffected > 0, nil
}

// Tally counts the current value of every ballot on the incident.
func (l *VoteLedger) Tally(ctx context.Context, incidentID uuid.UUID) (Tally, error) {
	var row struct {
		ConfirmCount int64
		RejectCount  int64
	}
	err := dbFromContext(ctx, l.db).Model(&models.Vote{}).
		Select("COALESCE(SUM(CASE WHEN confirm THEN 1 ELSE 0 END), 0) AS confirm_count, "+
			"COALESCE(SUM(CASE WHEN confirm THEN 0 ELSE 1 END), 0) AS reject_count").
		Where("incident_id = ?", incidentID).
		Scan(&row).Error
	if err != nil {
		return Tally{}, wrap(err, "tally votes")
	}
	return Tally{Confirm: row.ConfirmCount, Reject: row.RejectCount}, nil
}

// List returns the ballots in the order they were first cast.
func (l *VoteLedger) List(ctx context.Context, incidentID uuid.UUID) ([]models.Vote, error) {
	votes := []models.Vote{}
	err := dbFromContext(ctx, l.db).
		Where("incident_id = ?", incidentID).
		Order("created_at ASC").Order("id ASC").
		Find(&votes).Error
	if err != nil {
		return nil, wrap(err, "list votes")
	}
	return votes, nil
}
