package domain

import (
	"strings"
	"time"
)

// The types in this file mirror the storefront REST API. They are decoded
// from the backend and never stored locally.

// ActivityLog is one entry of the admin audit trail.
type ActivityLog struct {
	ID           string    `json:"id"`
	ActivityType string    `json:"activityType"`
	EntityType   string    `json:"entityType"`
	EntityID     string    `json:"entityId,omitempty"`
	EntityName   string    `json:"entityName"`
	Description  string    `json:"description"`
	UserID       string    `json:"userId,omitempty"`
	UserName     string    `json:"userName"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuestionOption is one answer of a pharmacy question.
type QuestionOption struct {
	ID              string `json:"id,omitempty"`
	OptionText      string `json:"optionText"`
	IsDisqualifying bool   `json:"isDisqualifying"`
	DisplayOrder    int    `json:"displayOrder"`
}

// PharmacyQuestion is a qualification question shown before buying
// pharmacy-restricted products.
type PharmacyQuestion struct {
	ID           string           `json:"id"`
	QuestionText string           `json:"questionText"`
	IsActive     bool             `json:"isActive"`
	IsDeleted    bool             `json:"isDeleted"`
	DisplayOrder int              `json:"displayOrder"`
	Options      []QuestionOption `json:"options"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt,omitempty"`
}

// ActiveStatus renders IsActive as a filterable category.
func (q PharmacyQuestion) ActiveStatus() string { return activeStatus(q.IsActive) }

// Lifecycle renders IsDeleted as a filterable category.
func (q PharmacyQuestion) Lifecycle() string {
	if q.IsDeleted {
		return "deleted"
	}
	return "live"
}

// ProductReview is a customer review awaiting or past moderation.
type ProductReview struct {
	ID                 string     `json:"id"`
	ProductID          string     `json:"productId"`
	ProductName        string     `json:"productName"`
	UserID             string     `json:"userId,omitempty"`
	UserName           string     `json:"userName"`
	Rating             int        `json:"rating"`
	Title              string     `json:"title,omitempty"`
	Comment            string     `json:"comment"`
	IsApproved         bool       `json:"isApproved"`
	IsVerifiedPurchase bool       `json:"isVerifiedPurchase"`
	AdminReply         string     `json:"adminReply,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
}

// ModerationStatus renders IsApproved as a filterable category.
func (r ProductReview) ModerationStatus() string {
	if r.IsApproved {
		return "approved"
	}
	return "pending"
}

// Subscription statuses.
const (
	SubscriptionActive    = "Active"
	SubscriptionPaused    = "Paused"
	SubscriptionCancelled = "Cancelled"
	SubscriptionExpired   = "Expired"
)

// Subscription is a recurring delivery of a product.
type Subscription struct {
	ID                 string     `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerEmail      string     `json:"customerEmail"`
	ProductID          string     `json:"productId"`
	ProductName        string     `json:"productName"`
	Status             string     `json:"status"`
	Frequency          string     `json:"frequency"`
	Price              float64    `json:"price"`
	Quantity           int        `json:"quantity"`
	NextDeliveryDate   time.Time  `json:"nextDeliveryDate"`
	CreatedAt          time.Time  `json:"createdAt"`
	PausedAt           *time.Time `json:"pausedAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
}

// VATRate is a tax rate applied per country.
type VATRate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"countryCode"`
	Rate        float64   `json:"rate"`
	IsActive    bool      `json:"isActive"`
	IsDefault   bool      `json:"isDefault"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ActiveStatus renders IsActive as a filterable category.
func (v VATRate) ActiveStatus() string { return activeStatus(v.IsActive) }

// Product is the subset of a catalog product the storefront cart needs.
type Product struct {
	ID                        string  `json:"id"`
	Name                      string  `json:"name"`
	Price                     float64 `json:"price"`
	RequiresPharmacyQuestions bool    `json:"requiresPharmacyQuestions"`
}

// CartItem is an add-to-cart request.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// QuestionAnswer is one selected option of the qualification questionnaire.
type QuestionAnswer struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

func activeStatus(on bool) string {
	if on {
		return "active"
	}
	return "inactive"
}

// NormalizeCountry upper-cases and trims an ISO country code.
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
