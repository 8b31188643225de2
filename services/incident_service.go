package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/models"
	"github.com/weak-excuse/api-go/types"
	"gorm.io/gorm"
)

type CreateIncidentInput struct {
	GroupID   uuid.UUID
	AccuserID uuid.UUID
	AccusedID uuid.UUID
	Type      string
	Severity  string
	Note      *string
}

// IncidentView is an incident together with its live ballot count and voter
// pool.
type IncidentView struct {
	models.Incident
	TypeLabel string `json:"type_label"`
	Tally
	Eligibility
}

type VoteResult struct {
	Tally
	Resolution types.Resolution     `json:"resolution"`
	Status     types.IncidentStatus `json:"status"`
}

type statusChange struct {
	id       uuid.UUID
	from, to types.IncidentStatus
}

// IncidentService is the incident state machine. It is the only writer of
// Incident.Status, Points and ScoredAt. Every operation runs in one
// transaction and every status write is conditional on the status it was
// read in, so concurrent callers cannot apply the same transition twice.
type IncidentService struct {
	db          *gorm.DB
	members     *MemberDirectory
	eligibility *EligibilityCalculator
	ledger      *VoteLedger
	evaluator   *Evaluator
	rules       types.IncidentRules
	now         Clock
	logger      *slog.Logger
}

func NewIncidentService(db *gorm.DB, rules types.IncidentRules, logger *slog.Logger) *IncidentService {
	if logger == nil {
		logger = slog.Default()
	}
	members := NewMemberDirectory(db)
	ledger := NewVoteLedger(db, members)
	eligibility := NewEligibilityCalculator(members)
	return &IncidentService{
		db:          db,
		members:     members,
		eligibility: eligibility,
		ledger:      ledger,
		evaluator:   NewEvaluator(eligibility, ledger),
		rules:       rules,
		now:         systemClock,
		logger:      logger.With(slog.String("component", "incidents")),
	}
}

// SetClock replaces the time source of the service and its collaborators.
func (s *IncidentService) SetClock(c Clock) {
	s.now = c
	s.members.now = c
	s.ledger.now = c
}

func (s *IncidentService) Members() *MemberDirectory { return s.members }

func (s *IncidentService) Ledger() *VoteLedger { return s.ledger }

// CreateIncident files an accusation, or a self-report when accuser and
// accused are the same user. Self-reports are accepted and scored at once.
func (s *IncidentService) CreateIncident(ctx context.Context, in CreateIncidentInput) (*models.Incident, error) {
	if in.GroupID == uuid.Nil || in.AccuserID == uuid.Nil || in.AccusedID == uuid.Nil {
		return nil, reason(ErrInvalidInput, "group, accuser and accused are required")
	}
	incidentType, ok := types.ParseIncidentType(in.Type)
	if !ok {
		return nil, reason(ErrInvalidInput, fmt.Sprintf("unknown incident type %q", in.Type))
	}
	severity, ok := types.ParseSeverity(in.Severity)
	if !ok {
		return nil, reason(ErrInvalidInput, fmt.Sprintf("unknown severity %q", in.Severity))
	}
	note, err := s.normalizeNote(in.Note)
	if err != nil {
		return nil, err
	}
	selfReport := in.AccuserID == in.AccusedID

	var incident models.Incident
	err = inTx(ctx, s.db, func(ctx context.Context) error {
		// Locking the accuser's seat serializes their concurrent creates, so
		// the accusation count below cannot be read twice before an insert.
		active, err := s.members.LockActiveMember(ctx, in.GroupID, in.AccuserID)
		if err != nil {
			return err
		}
		if !active {
			return reason(ErrForbidden, "you are not an active member of this group")
		}
		if !selfReport {
			active, err = s.members.IsActiveMember(ctx, in.GroupID, in.AccusedID)
			if err != nil {
				return err
			}
			if !active {
				return reason(ErrForbidden, "both users must be active group members")
			}
			if err := s.checkAccusationLimit(ctx, in.GroupID, in.AccuserID); err != nil {
				return err
			}
		}

		now := s.now()
		incident = models.Incident{
			GroupID:      in.GroupID,
			AccuserID:    in.AccuserID,
			AccusedID:    in.AccusedID,
			Type:         incidentType,
			Severity:     severity,
			Note:         note,
			Status:       InitialStatus(selfReport),
			IsSelfReport: selfReport,
			ExpiresAt:    now.Add(s.rules.ExpiryFor(selfReport)),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if selfReport {
			scoredAt := now
			incident.ScoredAt = &scoredAt
			incident.Points = severity.Points()
		}
		if err := dbFromContext(ctx, s.db).Create(&incident).Error; err != nil {
			return wrap(err, "insert incident")
		}
		if err := s.recordActivity(ctx, &incident, &in.AccuserID, models.ActivityIncidentCreated, 0); err != nil {
			return err
		}
		if selfReport {
			return s.recordActivity(ctx, &incident, &in.AccuserID, models.ActivityIncidentAccepted, incident.Points)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "incident created",
		slog.String("incident_id", incident.ID.String()),
		slog.String("group_id", incident.GroupID.String()),
		slog.String("status", string(incident.Status)),
		slog.Bool("self_report", incident.IsSelfReport))
	return &incident, nil
}

// AcceptIncident lets the accused take the points of a pending incident.
func (s *IncidentService) AcceptIncident(ctx context.Context, incidentID, callerID uuid.UUID) (*models.Incident, error) {
	var (
		out     *models.Incident
		changes []statusChange
	)
	err := inTx(ctx, s.db, func(ctx context.Context) error {
		incident, err := s.load(ctx, incidentID)
		if err != nil {
			return err
		}
		if callerID != incident.AccusedID {
			return reason(ErrForbidden, "only the accused can accept")
		}
		change, err := s.apply(ctx, incident, EventAccept)
		if err != nil {
			return err
		}
		changes = append(changes, change)
		if err := s.recordActivity(ctx, incident, &callerID, models.ActivityIncidentAccepted, incident.Points); err != nil {
			return err
		}
		out, err = s.load(ctx, incidentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logChanges(ctx, changes)
	return out, nil
}

// DenyIncident moves a pending incident to a vote. The accuser's confirm
// ballot is cast immediately and can already decide small groups.
func (s *IncidentService) DenyIncident(ctx context.Context, incidentID, callerID uuid.UUID) (*models.Incident, error) {
	var (
		out     *models.Incident
		changes []statusChange
	)
	err := inTx(ctx, s.db, func(ctx context.Context) error {
		incident, err := s.load(ctx, incidentID)
		if err != nil {
			return err
		}
		if callerID != incident.AccusedID {
			return reason(ErrForbidden, "only the accused can deny")
		}
		change, err := s.apply(ctx, incident, EventDeny)
		if err != nil {
			return err
		}
		changes = append(changes, change)
		if err := s.recordActivity(ctx, incident, &callerID, models.ActivityIncidentDisputed, 0); err != nil {
			return err
		}
		if _, err := s.ledger.AutoCastAccuserConfirm(ctx, incident.ID, incident.AccuserID); err != nil {
			return err
		}
		_, resolved, err := s.resolve(ctx, incident)
		if err != nil {
			return err
		}
		if resolved != nil {
			changes = append(changes, *resolved)
		}
		out, err = s.load(ctx, incidentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logChanges(ctx, changes)
	return out, nil
}

// CastVote records callerID's ballot on a disputed incident and resolves the
// incident if a majority is reached.
func (s *IncidentService) CastVote(ctx context.Context, incidentID, callerID uuid.UUID, confirm bool) (*VoteResult, error) {
	var (
		result VoteResult
		change *statusChange
	)
	err := inTx(ctx, s.db, func(ctx context.Context) error {
		incident, err := s.load(ctx, incidentID)
		if err != nil {
			return err
		}
		if incident.Status != types.StatusDisputed {
			return fmt.Errorf("%w: incident is %s, not disputed", ErrInvalidState, incident.Status)
		}
		// Claim the row so ballots on the same incident are tallied one
		// transaction at a time.
		if err := s.claim(ctx, incident); err != nil {
			return err
		}
		if err := s.ledger.Cast(ctx, incident, callerID, confirm); err != nil {
			return err
		}
		if err := s.recordActivity(ctx, incident, &callerID, models.ActivityVoteCast, 0); err != nil {
			return err
		}
		eval, ch, err := s.resolve(ctx, incident)
		if err != nil {
			return err
		}
		change = ch
		result = VoteResult{
			Tally:      eval.Tally,
			Resolution: eval.Resolution,
			Status:     incident.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if change != nil {
		s.logChanges(ctx, []statusChange{*change})
	}
	return &result, nil
}

// ExpireOverdue moves every pending or disputed incident whose deadline is
// before now to expired, in one conditional bulk update. Incidents already in
// a terminal status are never touched.
func (s *IncidentService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Incident{}).
		Where("status IN ? AND expires_at < ?", statusStrings(types.ExpirableStatuses), now).
		Updates(map[string]any{
			"status":     string(types.StatusExpired),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, wrap(res.Error, "expire incidents")
	}
	return res.RowsAffected, nil
}

// GetIncident returns the incident with its ballot count. Only active members
// of the incident's group may read it.
func (s *IncidentService) GetIncident(ctx context.Context, incidentID, callerID uuid.UUID) (*IncidentView, error) {
	incident, err := s.load(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, incident.GroupID, callerID); err != nil {
		return nil, err
	}
	view, err := s.view(ctx, incident)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListIncidents returns a page of the group's incidents, newest first.
func (s *IncidentService) ListIncidents(ctx context.Context, groupID, callerID uuid.UUID, limit, offset int) ([]IncidentView, error) {
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&incidents).Error
	if err != nil {
		return nil, wrap(err, "list incidents")
	}
	views := make([]IncidentView, 0, len(incidents))
	for i := range incidents {
		view, err := s.view(ctx, &incidents[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ListVotes returns the incident's ballots in cast order.
func (s *IncidentService) ListVotes(ctx context.Context, incidentID, callerID uuid.UUID) ([]models.Vote, error) {
	incident, err := s.load(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, incident.GroupID, callerID); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, incident.ID)
}

func (s *IncidentService) load(ctx context.Context, incidentID uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	err := dbFromContext(ctx, s.db).Where("id = ?", incidentID).Take(&incident).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reason(ErrNotFound, "incident not found")
	}
	if err != nil {
		return nil, wrap(err, "load incident")
	}
	return &incident, nil
}

func (s *IncidentService) requireMember(ctx context.Context, groupID, userID uuid.UUID) error {
	active, err := s.members.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !active {
		return reason(ErrForbidden, "not an active member of this group")
	}
	return nil
}

// apply runs ev against the incident and writes the new status only if the
// row still holds the status it was read with. Scoring fields are set on the
// way into a scored status.
func (s *IncidentService) apply(ctx context.Context, incident *models.Incident, ev Event) (statusChange, error) {
	from := incident.Status
	to, err := Next(from, ev)
	if err != nil {
		return statusChange{}, err
	}
	now := s.now()
	updates := map[string]any{
		"status":     string(to),
		"updated_at": now,
	}
	if to.IsScored() {
		updates["scored_at"] = now
		updates["points"] = incident.Severity.Points()
	}
	res := dbFromContext(ctx, s.db).Model(&models.Incident{}).
		Where("id = ? AND status = ?", incident.ID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return statusChange{}, wrap(res.Error, "update incident status")
	}
	if res.RowsAffected == 0 {
		return statusChange{}, fmt.Errorf("%w: incident is no longer %s", ErrInvalidState, from)
	}

	incident.Status = to
	incident.UpdatedAt = now
	if to.IsScored() {
		scoredAt := now
		incident.ScoredAt = &scoredAt
		incident.Points = incident.Severity.Points()
	}
	return statusChange{id: incident.ID, from: from, to: to}, nil
}

// claim bumps updated_at on a disputed incident, taking its row lock for the
// rest of the transaction.
func (s *IncidentService) claim(ctx context.Context, incident *models.Incident) error {
	res := dbFromContext(ctx, s.db).Model(&models.Incident{}).
		Where("id = ? AND status = ?", incident.ID, string(types.StatusDisputed)).
		Update("updated_at", s.now())
	if res.Error != nil {
		return wrap(res.Error, "claim incident")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: incident is no longer disputed", ErrInvalidState)
	}
	return nil
}

// resolve evaluates the ballots of a disputed incident and applies the
// outcome when a majority exists.
func (s *IncidentService) resolve(ctx context.Context, incident *models.Incident) (Evaluation, *statusChange, error) {
	eval, err := s.evaluator.Evaluate(ctx, incident.ID, incident.GroupID, incident.AccusedID)
	if err != nil {
		return Evaluation{}, nil, err
	}
	ev, ok := resolutionEvent(eval.Resolution)
	if !ok {
		return eval, nil, nil
	}
	change, err := s.apply(ctx, incident, ev)
	if err != nil {
		return Evaluation{}, nil, err
	}
	activity := models.ActivityIncidentRejected
	if change.to == types.StatusConfirmed {
		activity = models.ActivityIncidentConfirmed
	}
	if err := s.recordActivity(ctx, incident, nil, activity, incident.Points); err != nil {
		return Evaluation{}, nil, err
	}
	return eval, &change, nil
}

func (s *IncidentService) view(ctx context.Context, incident *models.Incident) (IncidentView, error) {
	elig, err := s.eligibility.Eligibility(ctx, incident.GroupID, incident.AccusedID)
	if err != nil {
		return IncidentView{}, err
	}
	tally, err := s.ledger.Tally(ctx, incident.ID)
	if err != nil {
		return IncidentView{}, err
	}
	return IncidentView{
		Incident:    *incident,
		TypeLabel:   incident.Type.Label(),
		Tally:       tally,
		Eligibility: elig,
	}, nil
}

func (s *IncidentService) checkAccusationLimit(ctx context.Context, groupID, accuserID uuid.UUID) error {
	if s.rules.DailyAccusationLimit <= 0 {
		return nil
	}
	since := s.now().Add(-s.rules.AccusationWindow)
	var count int64
	err := dbFromContext(ctx, s.db).Model(&models.Incident{}).
		Where("group_id = ? AND accuser_id = ? AND is_self_report = ? AND created_at > ?", groupID, accuserID, false, since).
		Count(&count).Error
	if err != nil {
		return wrap(err, "count recent accusations")
	}
	if count >= int64(s.rules.DailyAccusationLimit) {
		return reason(ErrRateLimited, fmt.Sprintf("daily accusation limit reached (%d per day)", s.rules.DailyAccusationLimit))
	}
	return nil
}

func (s *IncidentService) normalizeNote(note *string) (*string, error) {
	if note == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil, nil
	}
	if s.rules.NoteMaxLength > 0 && utf8.RuneCountInString(trimmed) > s.rules.NoteMaxLength {
		return nil, reason(ErrInvalidInput, fmt.Sprintf("note is longer than %d characters", s.rules.NoteMaxLength))
	}
	return &trimmed, nil
}

func (s *IncidentService) recordActivity(ctx context.Context, incident *models.Incident, userID *uuid.UUID, activity string, points int) error {
	entry := models.ActivityLog{
		CreatedAt:  s.now(),
		IncidentID: incident.ID,
		GroupID:    incident.GroupID,
		UserID:     userID,
		Activity:   activity,
		Points:     points,
	}
	return wrap(dbFromContext(ctx, s.db).Create(&entry).Error, "record activity")
}

func (s *IncidentService) logChanges(ctx context.Context, changes []statusChange) {
	for _, c := range changes {
		s.logger.InfoContext(ctx, "incident transitioned",
			slog.String("incident_id", c.id.String()),
			slog.String("from", string(c.from)),
			slog.String("to", string(c.to)))
	}
}

func statusStrings(statuses []types.IncidentStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
