package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/types"
)

type LeaderboardEntry struct {
	UserID        uuid.UUID `json:"user_id" gorm:"column:user_id"`
	Name          *string   `json:"name" gorm:"column:name"`
	AvatarURL     *string   `json:"avatar_url" gorm:"column:avatar_url"`
	TotalPoints   int64     `json:"total_points" gorm:"column:total_points"`
	IncidentCount int64     `json:"incident_count" gorm:"column:incident_count"`
	Rank          int       `json:"rank" gorm:"-"`
}

// Leaderboard ranks the active members of a group by the points of their
// scored incidents. windowDays in 1..365 limits the ranking to incidents
// scored in that many trailing days; any other value means career totals.
func (s *IncidentService) Leaderboard(ctx context.Context, groupID, callerID uuid.UUID, windowDays int) ([]LeaderboardEntry, error) {
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	joinClause := "LEFT JOIN incidents i ON i.accused_id = gm.user_id AND i.group_id = gm.group_id " +
		"AND i.status IN ? AND i.scored_at IS NOT NULL"
	params := []any{statusStrings(types.ScoredStatuses)}
	if windowDays > 0 && windowDays <= 365 {
		joinClause += " AND i.scored_at > ?"
		params = append(params, s.now().Add(-time.Duration(windowDays)*24*time.Hour))
	}

	entries := []LeaderboardEntry{}
	err := s.db.WithContext(ctx).Table("group_members AS gm").
		Select("gm.user_id AS user_id, u.name AS name, u.avatar_url AS avatar_url, "+
			"COALESCE(SUM(i.points), 0) AS total_points, COUNT(i.id) AS incident_count").
		Joins("LEFT JOIN users u ON u.id = gm.user_id").
		Joins(joinClause, params...).
		Where("gm.group_id = ? AND gm.left_at IS NULL", groupID).
		Group("gm.user_id, u.name, u.avatar_url").
		Order("total_points DESC, incident_count DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, wrap(err, "query leaderboard")
	}

	for i := range entries {
		switch {
		case i == 0:
			entries[i].Rank = 1
		case entries[i].TotalPoints == entries[i-1].TotalPoints:
			entries[i].Rank = entries[i-1].Rank
		default:
			entries[i].Rank = i + 1
		}
	}
	return entries, nil
}
