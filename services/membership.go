package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/models"
	"gorm.io/gorm"
)

// Membership answers the two questions the resolution engine asks of the
// group membership collaborator.
type Membership interface {
	IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ActiveMemberCount(ctx context.Context, groupID, excluding uuid.UUID) (int64, error)
}

// MemberDirectory is the gorm backed Membership. Calls made with a ctx from
// WithTx run inside that transaction.
type MemberDirectory struct {
	db  *gorm.DB
	now Clock
}

var _ Membership = (*MemberDirectory)(nil)

func NewMemberDirectory(db *gorm.DB) *MemberDirectory {
	return &MemberDirectory{db: db, now: systemClock}
}

func (d *MemberDirectory) IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := dbFromContext(ctx, d.db).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrap(err, "check membership")
	}
	return count > 0, nil
}

func (d *MemberDirectory) ActiveMemberCount(ctx context.Context, groupID, excluding uuid.UUID) (int64, error) {
	var count int64
	err := dbFromContext(ctx, d.db).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id <> ? AND left_at IS NULL", groupID, excluding).
		Count(&count).Error
	if err != nil {
		return 0, wrap(err, "count active members")
	}
	return count, nil
}

// LockActiveMember takes the row lock of userID's active seat for the rest of
// the transaction in ctx and reports whether the seat exists. Writers that
// count per-member rows before inserting hold it to serialize each other.
func (d *MemberDirectory) LockActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	res := dbFromContext(ctx, d.db).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).
		Update("joined_at", gorm.Expr("joined_at"))
	if res.Error != nil {
		return false, wrap(res.Error, "lock member")
	}
	return res.RowsAffected > 0, nil
}

// Join adds userID to the group, reactivating a previous seat if one exists.
func (d *MemberDirectory) Join(ctx context.Context, groupID, userID uuid.UUID, role string) (*models.GroupMember, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	var member models.GroupMember
	err := inTx(ctx, d.db, func(ctx context.Context) error {
		db := dbFromContext(ctx, d.db)
		err := db.Where("group_id = ? AND user_id = ?", groupID, userID).Take(&member).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.GroupMember{
				GroupID:  groupID,
				UserID:   userID,
				Role:     role,
				JoinedAt: d.now(),
			}
			return wrap(db.Create(&member).Error, "insert member")
		case err != nil:
			return wrap(err, "load member")
		}
		if member.IsActive() {
			return nil
		}
		member.LeftAt = nil
		member.JoinedAt = d.now()
		return wrap(db.Model(&member).Updates(map[string]any{
			"left_at":   nil,
			"joined_at": member.JoinedAt,
		}).Error, "reactivate member")
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Leave marks the member as gone. Ballots already cast stay in the ledger.
func (d *MemberDirectory) Leave(ctx context.Context, groupID, userID uuid.UUID) error {
	res := dbFromContext(ctx, d.db).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).
		Update("left_at", d.now())
	if res.Error != nil {
		return wrap(res.Error, "leave group")
	}
	if res.RowsAffected == 0 {
		return reason(ErrNotFound, "active membership not found")
	}
	return nil
}
