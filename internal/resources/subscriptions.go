package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/listview"
)

const subscriptionsPath = "/admin/subscriptions"

// DefaultCancelReasonLength is the shortest cancellation reason accepted.
const DefaultCancelReasonLength = 10

type cancelPayload struct {
	Reason string `json:"reason"`
}

// Subscriptions is the recurring-delivery management page. Cancelling needs
// a reason of at least minReason characters.
func Subscriptions(minReason int) *Definition[domain.Subscription] {
	if minReason <= 0 {
		minReason = DefaultCancelReasonLength
	}
	action := func(suffix string) CallFunc {
		return func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
			return c.Mutate(ctx, http.MethodPost, itemPath(subscriptionsPath, id, suffix), nil, nil)
		}
	}
	return &Definition[domain.Subscription]{
		Name: SubscriptionsName,
		Path: subscriptionsPath,
		Spec: &listview.Spec[domain.Subscription]{
			Name: SubscriptionsName,
			ID:   func(s domain.Subscription) string { return s.ID },
			SearchFields: []func(domain.Subscription) string{
				func(s domain.Subscription) string { return s.CustomerName },
				func(s domain.Subscription) string { return s.CustomerEmail },
				func(s domain.Subscription) string { return s.ProductName },
			},
			Categories: map[string]func(domain.Subscription) string{
				"status":    func(s domain.Subscription) string { return s.Status },
				"frequency": func(s domain.Subscription) string { return s.Frequency },
			},
			Date: func(s domain.Subscription) time.Time { return s.CreatedAt },
			SortFields: map[string]listview.SortField[domain.Subscription]{
				"createdAt":        listview.TimeField(func(s domain.Subscription) time.Time { return s.CreatedAt }),
				"nextDeliveryDate": listview.TimeField(func(s domain.Subscription) time.Time { return s.NextDeliveryDate }),
				"price":            listview.NumberField(func(s domain.Subscription) float64 { return s.Price }),
				"customerName":     listview.StringField(func(s domain.Subscription) string { return s.CustomerName }),
			},
			DefaultSort: "createdAt",
		},
		Verbs: verbs(
			Verb{
				Name:    "pause",
				Title:   "Pause subscription",
				Confirm: func([]string) string { return "Pause deliveries for this subscription?" },
				Target:  TargetOne,
				Success: "Subscription paused",
				Failure: "Failed to pause subscription",
				Call:    action("pause"),
			},
			Verb{
				Name:    "resume",
				Title:   "Resume subscription",
				Confirm: func([]string) string { return "Resume deliveries for this subscription?" },
				Target:  TargetOne,
				Success: "Subscription resumed",
				Failure: "Failed to resume subscription",
				Call:    action("resume"),
			},
			Verb{
				Name:    "skip",
				Title:   "Skip next delivery",
				Confirm: func([]string) string { return "Skip the next scheduled delivery?" },
				Target:  TargetOne,
				Success: "Next delivery skipped",
				Failure: "Failed to skip delivery",
				Call:    action("skip"),
			},
			Verb{
				Name:            "cancel",
				Title:           "Cancel subscription",
				Confirm:         func([]string) string { return "Cancel this subscription? Please tell us why." },
				Dangerous:       true,
				Target:          TargetOne,
				RequiresReason:  true,
				MinReasonLength: minReason,
				Success:         "Subscription cancelled",
				Failure:         "Failed to cancel subscription",
				Call: func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, reason string) error {
					return c.Mutate(ctx, http.MethodPost, itemPath(subscriptionsPath, id, "cancel"), cancelPayload{Reason: reason}, nil)
				},
			},
		),
		Columns: []export.Column[domain.Subscription]{
			{Header: "Created", Value: func(s domain.Subscription) string { return fmtTime(s.CreatedAt) }},
			{Header: "Customer", Value: func(s domain.Subscription) string { return s.CustomerName }},
			{Header: "Email", Value: func(s domain.Subscription) string { return s.CustomerEmail }},
			{Header: "Product", Value: func(s domain.Subscription) string { return s.ProductName }},
			{Header: "Status", Value: func(s domain.Subscription) string { return s.Status }},
			{Header: "Frequency", Value: func(s domain.Subscription) string { return s.Frequency }},
			{Header: "Quantity", Value: func(s domain.Subscription) string { return strconv.Itoa(s.Quantity) }},
			{Header: "Price", Value: func(s domain.Subscription) string { return fmtFloat(s.Price) }},
			{Header: "Next Delivery", Value: func(s domain.Subscription) string { return fmtTime(s.NextDeliveryDate) }},
			{Header: "Cancelled", Value: func(s domain.Subscription) string { return fmtTimePtr(s.CancelledAt) }},
			{Header: "Cancellation Reason", Value: func(s domain.Subscription) string { return s.CancellationReason }},
		},
	}
}
