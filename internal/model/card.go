package model

import "time"

type Column string

const (
	ColumnBacklog             Column = "BACKLOG"
	ColumnHighPriority        Column = "HIGH_PRIORITY"
	ColumnTodo                Column = "TODO"
	ColumnInProgress          Column = "IN_PROGRESS"
	ColumnReadyForAcceptance  Column = "READY_FOR_ACCEPTANCE"
	ColumnDone                Column = "DONE"
)

// Columns lists the fixed workflow stages in display order.
var Columns = []Column{
	ColumnBacklog,
	ColumnHighPriority,
	ColumnTodo,
	ColumnInProgress,
	ColumnReadyForAcceptance,
	ColumnDone,
}

func ValidColumn(c Column) bool {
	for _, v := range Columns {
		if v == c {
			return true
		}
	}
	return false
}

type Importance string

const (
	ImportanceLow    Importance = "LOW"
	ImportanceMedium Importance = "MEDIUM"
	ImportanceHigh   Importance = "HIGH"
)

func ValidImportance(i Importance) bool {
	return i == ImportanceLow || i == ImportanceMedium || i == ImportanceHigh
}

type Card struct {
	ID          string `gorm:"primaryKey" json:"id"`
	BoardID     string `gorm:"index:idx_card_partition;not null" json:"boardId"`
	Description string `gorm:"not null" json:"description"`
	Details     string `json:"details"`
	Assignee    string `json:"assignee"`

	DueDate *time.Time `json:"dueDate"`

	// The db column is called stage because "column" is an SQL keyword
	// that raw where clauses won't quote
	Column Column `gorm:"column:stage;index:idx_card_partition;not null" json:"column"`

	// Position is the 0-based rank inside the (board, column) partition.
	// Positions stay dense after every create, move and delete.
	Position int `gorm:"not null" json:"position"`

	Importance Importance `gorm:"not null;default:MEDIUM" json:"importance"`
	Paused     bool       `gorm:"not null;default:false" json:"paused"`

	// AuthorID grants manage rights (assignee changes, deletion) next
	// to admins. Nulled when the author account is removed.
	AuthorID *string `json:"authorId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
