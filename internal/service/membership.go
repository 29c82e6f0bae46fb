package service

import (
	"errors"

	"github.com/ioterra-ru/kanban/internal/model"

	"gorm.io/gorm"
)

// CanAccessBoard is the capability check behind the board gate: admins
// may act on any board, everyone else needs a membership row. Admin
// access is never materialized as synthetic membership rows.
func CanAccessBoard(db *gorm.DB, user *model.User, boardID string) (bool, error) {
	if user.Role == model.RoleAdmin {
		return true, nil
	}

	var count int64
	err := db.Model(&model.BoardMembership{}).
		Where("board_id = ? AND user_id = ?", boardID, user.ID).
		Count(&count).
		Error

	return count > 0, err
}

// SyncBoardMembers applies a desired member set to a board: dropped
// memberships are removed (with the default-board fallback for affected
// users), new ones created. Existing rows keep their creation order.
func SyncBoardMembers(tx *gorm.DB, boardID string, want []string) error {
	var current []model.BoardMembership
	if err := tx.Where("board_id = ?", boardID).Find(&current).Error; err != nil {
		return err
	}

	wantSet := make(map[string]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}

	currentSet := make(map[string]bool, len(current))
	for _, m := range current {
		currentSet[m.UserID] = true

		if wantSet[m.UserID] {
			continue
		}

		err := tx.Delete(&model.BoardMembership{}, "board_id = ? AND user_id = ?", boardID, m.UserID).Error
		if err != nil {
			return err
		}

		if err := ReassignDefaultBoard(tx, m.UserID, boardID); err != nil {
			return err
		}
	}

	for _, id := range want {
		if currentSet[id] {
			continue
		}

		err := tx.Create(&model.BoardMembership{BoardID: boardID, UserID: id}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// SyncUserBoards is the per-user view of the same operation, used by
// the admin board-access matrix.
func SyncUserBoards(tx *gorm.DB, userID string, want []string) error {
	var current []model.BoardMembership
	if err := tx.Where("user_id = ?", userID).Find(&current).Error; err != nil {
		return err
	}

	wantSet := make(map[string]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}

	currentSet := make(map[string]bool, len(current))
	for _, m := range current {
		currentSet[m.BoardID] = true

		if wantSet[m.BoardID] {
			continue
		}

		err := tx.Delete(&model.BoardMembership{}, "board_id = ? AND user_id = ?", m.BoardID, userID).Error
		if err != nil {
			return err
		}

		if err := ReassignDefaultBoard(tx, userID, m.BoardID); err != nil {
			return err
		}
	}

	for _, id := range want {
		if currentSet[id] {
			continue
		}

		err := tx.Create(&model.BoardMembership{BoardID: id, UserID: userID}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// ReassignDefaultBoard points a user's default board at their earliest
// remaining membership after they lost access to lostBoardID, or clears
// it when no membership remains.
func ReassignDefaultBoard(tx *gorm.DB, userID, lostBoardID string) error {
	var user model.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if user.DefaultBoardID == nil || *user.DefaultBoardID != lostBoardID {
		return nil
	}

	var m model.BoardMembership
	err := tx.Where("user_id = ? AND board_id <> ?", userID, lostBoardID).
		Order("id asc").
		First(&m).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Model(&model.User{}).
			Where("id = ?", userID).
			Update("default_board_id", nil).
			Error
	}
	if err != nil {
		return err
	}

	return tx.Model(&model.User{}).
		Where("id = ?", userID).
		Update("default_board_id", m.BoardID).
		Error
}

// InvalidateUserAuth kills every session and trusted device of a user.
// keepSessionID spares the caller's own session on a self-service
// password change; pass "" to purge everything.
func InvalidateUserAuth(tx *gorm.DB, userID, keepSessionID string) error {
	q := tx.Where("user_id = ?", userID)
	if keepSessionID != "" {
		q = q.Where("id <> ?", keepSessionID)
	}

	if err := q.Delete(&model.Session{}).Error; err != nil {
		return err
	}

	return tx.Delete(&model.TrustedDevice{}, "user_id = ?", userID).Error
}
