package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/listview"
)

// GetViewState loads the stored view state of userID on resource. It returns
// ErrNotFound when none was saved yet.
func GetViewState(ctx context.Context, db *gorm.DB, userID, resource string) (listview.ViewState, error) {
	var rec domain.ViewStateRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND resource = ?", userID, resource).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return listview.ViewState{}, ErrNotFound
	}
	if err != nil {
		return listview.ViewState{}, err
	}
	var st listview.ViewState
	if err := json.Unmarshal(rec.State, &st); err != nil {
		return listview.ViewState{}, err
	}
	return st, nil
}

// SaveViewState upserts the view state of userID on resource.
func SaveViewState(ctx context.Context, db *gorm.DB, userID, resource string, st listview.ViewState) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return err
	}
	rec := domain.ViewStateRecord{
		UserID:    userID,
		Resource:  resource,
		State:     datatypes.JSON(buf),
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&rec).Error
}

// DeleteViewState forgets the stored view state.
func DeleteViewState(ctx context.Context, db *gorm.DB, userID, resource string) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND resource = ?", userID, resource).
		Delete(&domain.ViewStateRecord{}).Error
}
