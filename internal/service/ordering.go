// Package service holds the domain logic shared between handlers:
// card ordering, membership bookkeeping, mail and background jobs
package service

import (
	"github.com/ioterra-ru/kanban/internal/model"

	"gorm.io/gorm"
)

// Every (board, column) partition owns a dense, 0-based position
// sequence. The helpers here are the only code allowed to write the
// position column.

// AppendPosition returns the next free position at the bottom of the
// (board, column) partition.
func AppendPosition(tx *gorm.DB, boardID string, col model.Column) (int, error) {
	var next int

	err := tx.Model(&model.Card{}).
		Where("board_id = ? AND stage = ?", boardID, col).
		Select("COALESCE(MAX(position)+1, 0)").
		Scan(&next).
		Error

	return next, err
}

// MoveCard places a card at index within the target column and rewrites
// every touched partition densely, all inside one transaction. The
// index counts positions in the target column after the card itself is
// taken out, and is clamped to [0, len]. Returns false when the move is
// a no-op so callers can skip notifications.
func MoveCard(db *gorm.DB, card *model.Card, target model.Column, index int) (bool, error) {
	moved := false

	err := db.Transaction(func(tx *gorm.DB) error {
		destIDs, err := partitionIDs(tx, card.BoardID, target, card.ID)
		if err != nil {
			return err
		}

		index = clampIndex(index, len(destIDs))

		if target == card.Column && index == card.Position {
			return nil
		}
		moved = true

		if target != card.Column {
			// Close the gap left in the source column first
			srcIDs, err := partitionIDs(tx, card.BoardID, card.Column, card.ID)
			if err != nil {
				return err
			}

			if err := renumber(tx, srcIDs); err != nil {
				return err
			}

			if err := tx.Model(&model.Card{}).
				Where("id = ?", card.ID).
				Update("stage", target).
				Error; err != nil {
				return err
			}
		}

		// Full rewrite of the destination partition. Rewriting the
		// unaffected cards too keeps the sequence dense even when a
		// concurrent move computed from a stale read.
		return renumber(tx, insertAt(destIDs, index, card.ID))
	})
	if err != nil {
		return false, err
	}

	if moved {
		card.Column = target
		card.Position = index
	}

	return moved, nil
}

// DeleteCard removes a card with its children and renumbers the
// partition it occupied so positions stay gapless.
func DeleteCard(db *gorm.DB, card *model.Card) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Comment{}, "card_id = ?", card.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Attachment{}, "card_id = ?", card.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.CardParticipant{}, "card_id = ?", card.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Card{}, "id = ?", card.ID).Error; err != nil {
			return err
		}

		ids, err := partitionIDs(tx, card.BoardID, card.Column, card.ID)
		if err != nil {
			return err
		}

		return renumber(tx, ids)
	})
}

// partitionIDs returns the ordered card ids of a (board, column)
// partition with one card excluded.
func partitionIDs(tx *gorm.DB, boardID string, col model.Column, excludeID string) ([]string, error) {
	var ids []string

	err := tx.Model(&model.Card{}).
		Where("board_id = ? AND stage = ? AND id <> ?", boardID, col, excludeID).
		Order("position asc, id asc").
		Pluck("id", &ids).
		Error

	return ids, err
}

func renumber(tx *gorm.DB, ids []string) error {
	for i, id := range ids {
		err := tx.Model(&model.Card{}).
			Where("id = ?", id).
			Update("position", i).
			Error
		if err != nil {
			return err
		}
	}

	return nil
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

func insertAt(ids []string, i int, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}
