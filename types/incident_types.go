package types

import "strings"

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	StatusPending   IncidentStatus = "pending"
	StatusAccepted  IncidentStatus = "accepted"
	StatusDisputed  IncidentStatus = "disputed"
	StatusConfirmed IncidentStatus = "confirmed"
	StatusRejected  IncidentStatus = "rejected"
	StatusExpired   IncidentStatus = "expired"
)

// IsTerminal reports whether no transition can leave the status.
func (s IncidentStatus) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusConfirmed, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsScored reports whether incidents in this status carry points.
func (s IncidentStatus) IsScored() bool {
	return s == StatusAccepted || s == StatusConfirmed
}

// ExpirableStatuses are the states the expiry sweep may move to expired.
var ExpirableStatuses = []IncidentStatus{StatusPending, StatusDisputed}

// ScoredStatuses are the states counted by the leaderboard.
var ScoredStatuses = []IncidentStatus{StatusAccepted, StatusConfirmed}

// IncidentType is the offense category.
type IncidentType string

const (
	TypeLastMinuteCancel IncidentType = "last_minute_cancel"
	TypeGhosted          IncidentType = "ghosted"
	TypeLateAF           IncidentType = "late_af"
	TypeMaybeMerchant    IncidentType = "maybe_merchant"
	TypeWeakExcuse       IncidentType = "weak_excuse"
)

var incidentTypeLabels = map[IncidentType]string{
	TypeLastMinuteCancel: "Last-minute cancel",
	TypeGhosted:          "Ghosted",
	TypeLateAF:           "Late AF",
	TypeMaybeMerchant:    `"Maybe" merchant`,
	TypeWeakExcuse:       "Weak excuse",
}

func (t IncidentType) Valid() bool {
	_, ok := incidentTypeLabels[t]
	return ok
}

func (t IncidentType) Label() string {
	return incidentTypeLabels[t]
}

func ParseIncidentType(raw string) (IncidentType, bool) {
	t := IncidentType(strings.ToLower(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Resolution is the outcome of evaluating the ballots of a disputed incident.
type Resolution string

const (
	ResolutionConfirmed Resolution = "confirmed"
	ResolutionRejected  Resolution = "rejected"
	ResolutionUndecided Resolution = "undecided"
)

type CreateIncidentRequest struct {
	GroupID   string  `json:"group_id" binding:"required,uuid"`
	AccusedID string  `json:"accused_id" binding:"required,uuid"`
	Type      string  `json:"type" binding:"required"`
	Severity  string  `json:"severity"`
	Note      *string `json:"note"`
}

type CastVoteRequest struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

type ListIncidentsQuery struct {
	GroupID string `form:"group_id" binding:"required,uuid"`
	Limit   int    `form:"limit,default=20" binding:"min=1,max=100"`
	Offset  int    `form:"offset,default=0" binding:"min=0"`
}

type LeaderboardQuery struct {
	Window int `form:"window,default=30"`
}
