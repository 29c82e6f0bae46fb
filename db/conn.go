// Package db opens the relational database and keeps the schema current
package db

import (
	"fmt"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dial gorm.Dialector

	switch viper.GetString("db.driver") {
	case "postgres":
		dial = postgres.Open(viper.GetString("db.dsn"))
	default:
		dial = sqlite.Open(viper.GetString("db.dsn"))
	}

	db, err := gorm.Open(dial)
	if err != nil {
		return nil, fmt.Errorf("failed to open database, %w", err)
	}

	err = Migrate(db)
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		model.User{},
		model.Board{},
		model.BoardMembership{},
		model.Card{},
		model.Comment{},
		model.Attachment{},
		model.CardParticipant{},
		model.Session{},
		model.TrustedDevice{},
		model.PasswordResetToken{},
	)
}
