package lib

import (
	"context"
	"database/sql"
	"time"

	"github.com/fiffu/stockwatch/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type users struct {
	log *zap.Logger
	db  *gorm.DB
}

// RecordSignIn creates the user on first sign-in and bumps LastLoginAt after.
func (svc *users) RecordSignIn(ctx context.Context, email, name string) (*models.User, error) {
	user := &models.User{
		Email:       email,
		Name:        name,
		LastLoginAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	tx := svc.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "last_login_at", "updated_at"}),
		}).
		Create(user)
	if err := tx.Error; err != nil {
		return nil, err
	}

	stored := &models.User{}
	tx = svc.db.WithContext(ctx).Where("email = ?", email).First(stored)
	if err := tx.Error; err != nil {
		return nil, err
	}
	svc.log.Sugar().Infow("User signed in", "user_id", stored.ID, "email", email)
	return stored, nil
}
