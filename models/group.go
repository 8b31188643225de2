package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)

type Group struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null" json:"name"`
	Emoji     string    `gorm:"type:varchar(16)" json:"emoji"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GroupMember is a user's seat in a group. A nil LeftAt means active.
type GroupMember struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user,priority:1" json:"group_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user,priority:2" json:"user_id"`
	Role     string     `gorm:"type:varchar(16);not null" json:"role"` // owner, member
	JoinedAt time.Time  `gorm:"not null" json:"joined_at"`
	LeftAt   *time.Time `gorm:"index" json:"left_at"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *GroupMember) IsActive() bool {
	return m.LeftAt == nil
}
