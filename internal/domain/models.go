// Package domain defines the types of the backoffice service: the persisted
// per-user state mapped with GORM, and the storefront API entities the list
// pages display.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ViewStateRecord stores the serialized list view state of one user on one
// resource page, so filters, sort and page survive between requests.
//
// Fields:
//   - UserID / Resource: composite primary key.
//   - State: JSON-encoded listview.ViewState.
//   - UpdatedAt: timestamp managed by GORM.
type ViewStateRecord struct {
	UserID    string         `gorm:"type:varchar(64);primaryKey"`
	Resource  string         `gorm:"type:varchar(64);primaryKey"`
	State     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name for ViewStateRecord.
func (ViewStateRecord) TableName() string { return "view_states" }

// PendingAction is the open confirmation of one user on one resource page.
// At most one exists per (user, resource); opening another replaces it.
type PendingAction struct {
	UserID     string         `gorm:"type:varchar(64);primaryKey"`
	Resource   string         `gorm:"type:varchar(64);primaryKey"`
	ID         string         `gorm:"type:char(36);not null;index"`
	Descriptor datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName returns the database table name for PendingAction.
func (PendingAction) TableName() string { return "pending_actions" }
