package types

import (
	"strings"
	"time"
)

const (
	MILD_POINTS     = 1
	BAD_POINTS      = 2
	CRIMINAL_POINTS = 3

	ACCUSATION_EXPIRY      = 7 * 24 * time.Hour
	SELF_REPORT_EXPIRY     = 48 * time.Hour
	DAILY_ACCUSATION_LIMIT = 3
	ACCUSATION_WINDOW      = 24 * time.Hour
	NOTE_MAX_LENGTH        = 280
)

// Severity is the offense weight of an incident. Its point value is derived,
// never stored on its own.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityBad      Severity = "bad"
	SeverityCriminal Severity = "criminal"
)

var severityPoints = map[Severity]int{
	SeverityMild:     MILD_POINTS,
	SeverityBad:      BAD_POINTS,
	SeverityCriminal: CRIMINAL_POINTS,
}

// Points returns the score awarded when an incident of this severity is
// accepted or confirmed. Unknown severities are worth nothing.
func (s Severity) Points() int {
	return severityPoints[s]
}

func (s Severity) Valid() bool {
	_, ok := severityPoints[s]
	return ok
}

// ParseSeverity normalizes user input. An empty value means mild.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return SeverityMild, true
	}
	return s, s.Valid()
}

// IncidentRules groups the timing and limit knobs of the incident lifecycle.
type IncidentRules struct {
	AccusationTTL        time.Duration
	SelfReportTTL        time.Duration
	DailyAccusationLimit int
	AccusationWindow     time.Duration
	NoteMaxLength        int
}

func GetIncidentRules() IncidentRules {
	return IncidentRules{
		AccusationTTL:        ACCUSATION_EXPIRY,
		SelfReportTTL:        SELF_REPORT_EXPIRY,
		DailyAccusationLimit: DAILY_ACCUSATION_LIMIT,
		AccusationWindow:     ACCUSATION_WINDOW,
		NoteMaxLength:        NOTE_MAX_LENGTH,
	}
}

// ExpiryFor returns how long a freshly created incident may wait for a
// voluntary resolution.
func (r IncidentRules) ExpiryFor(isSelfReport bool) time.Duration {
	if isSelfReport {
		return r.SelfReportTTL
	}
	return r.AccusationTTL
}
