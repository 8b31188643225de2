package services

import (
	"context"

	"github.com/google/uuid"
)

// Eligibility is the voter pool of one incident.
type Eligibility struct {
	EligibleCount     int64 `json:"eligible_voters"`
	MajorityThreshold int64 `json:"majority_threshold"`
}

// MajorityThreshold is floor(n/2)+1. With no eligible voters the threshold is
// 1, which nobody can reach, so the incident waits for expiry.
func MajorityThreshold(eligible int64) int64 {
	if eligible < 0 {
		eligible = 0
	}
	return eligible/2 + 1
}

type EligibilityCalculator struct {
	members Membership
}

func NewEligibilityCalculator(members Membership) *EligibilityCalculator {
	return &EligibilityCalculator{members: members}
}

// Eligibility counts the active members of the group other than the accused.
// The accuser is part of the pool.
func (c *EligibilityCalculator) Eligibility(ctx context.Context, groupID, accusedID uuid.UUID) (Eligibility, error) {
	count, err := c.members.ActiveMemberCount(ctx, groupID, accusedID)
	if err != nil {
		return Eligibility{}, err
	}
	return Eligibility{
		EligibleCount:     count,
		MajorityThreshold: MajorityThreshold(count),
	}, nil
}
