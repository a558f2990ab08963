package repo

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/gate"
)

// PendingActionStore is a gate.Store persisted in the pending_actions table.
type PendingActionStore struct {
	DB *gorm.DB
}

var _ gate.Store = (*PendingActionStore)(nil)

// Put replaces the pending descriptor of key.
func (s *PendingActionStore) Put(ctx context.Context, key gate.Key, d gate.Descriptor) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return err
	}
	rec := domain.PendingAction{
		UserID:     key.UserID,
		Resource:   key.Resource,
		ID:         d.ID,
		Descriptor: datatypes.JSON(buf),
		CreatedAt:  d.CreatedAt,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "descriptor", "created_at"}),
	}).Create(&rec).Error
}

// Get returns the pending descriptor of key or gate.ErrNoPending.
func (s *PendingActionStore) Get(ctx context.Context, key gate.Key) (gate.Descriptor, error) {
	return s.load(s.DB.WithContext(ctx), key)
}

// Take deletes and returns the descriptor of key if its id matches. The
// delete is conditioned on the id, so two concurrent confirmations cannot
// both consume it.
func (s *PendingActionStore) Take(ctx context.Context, key gate.Key, id string) (gate.Descriptor, error) {
	var out gate.Descriptor
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.load(tx, key)
		if err != nil {
			return err
		}
		if d.ID != id {
			return gate.ErrStaleDescriptor
		}
		res := tx.Where("user_id = ? AND resource = ? AND id = ?", key.UserID, key.Resource, id).
			Delete(&domain.PendingAction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return gate.ErrNoPending
		}
		out = d
		return nil
	})
	return out, err
}

// Delete removes the pending descriptor of key, if any.
func (s *PendingActionStore) Delete(ctx context.Context, key gate.Key) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ? AND resource = ?", key.UserID, key.Resource).
		Delete(&domain.PendingAction{}).Error
}

func (s *PendingActionStore) load(db *gorm.DB, key gate.Key) (gate.Descriptor, error) {
	var rec domain.PendingAction
	err := db.Where("user_id = ? AND resource = ?", key.UserID, key.Resource).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gate.Descriptor{}, gate.ErrNoPending
	}
	if err != nil {
		return gate.Descriptor{}, err
	}
	var d gate.Descriptor
	if err := json.Unmarshal(rec.Descriptor, &d); err != nil {
		return gate.Descriptor{}, err
	}
	return d, nil
}
