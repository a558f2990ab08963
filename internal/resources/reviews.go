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

const reviewsPath = "/admin/reviews"

// Reviews is the product review moderation page.
func Reviews() *Definition[domain.ProductReview] {
	deleteOne := func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
		return c.Mutate(ctx, http.MethodDelete, itemPath(reviewsPath, id, ""), nil, nil)
	}
	return &Definition[domain.ProductReview]{
		Name:   ReviewsName,
		Path:   reviewsPath,
		Params: map[string]string{"pendingOnly": "false"},
		Spec: &listview.Spec[domain.ProductReview]{
			Name: ReviewsName,
			ID:   func(r domain.ProductReview) string { return r.ID },
			SearchFields: []func(domain.ProductReview) string{
				func(r domain.ProductReview) string { return r.Comment },
				func(r domain.ProductReview) string { return r.UserName },
				func(r domain.ProductReview) string { return r.ProductName },
			},
			Categories: map[string]func(domain.ProductReview) string{
				"rating": func(r domain.ProductReview) string { return strconv.Itoa(r.Rating) },
				"status": domain.ProductReview.ModerationStatus,
			},
			Date: func(r domain.ProductReview) time.Time { return r.CreatedAt },
			Flags: map[string]func(domain.ProductReview) bool{
				"verified": func(r domain.ProductReview) bool { return r.IsVerifiedPurchase },
			},
			SortFields: map[string]listview.SortField[domain.ProductReview]{
				"createdAt": listview.TimeField(func(r domain.ProductReview) time.Time { return r.CreatedAt }),
				"rating":    listview.NumberField(func(r domain.ProductReview) float64 { return float64(r.Rating) }),
				"userName":  listview.StringField(func(r domain.ProductReview) string { return r.UserName }),
			},
			DefaultSort: "createdAt",
		},
		Verbs: verbs(
			Verb{
				Name:    "approve",
				Title:   "Approve review",
				Confirm: func([]string) string { return "Publish this review on the storefront?" },
				Target:  TargetOne,
				Success: "Review approved",
				Failure: "Failed to approve review",
				Call: func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
					return c.Mutate(ctx, http.MethodPost, itemPath(reviewsPath, id, "approve"), nil, nil)
				},
			},
			Verb{
				Name:    "reply",
				Title:   "Reply to review",
				Confirm: func([]string) string { return "Post this reply publicly under the review?" },
				Target:  TargetOne,
				Success: "Reply posted",
				Failure: "Failed to post reply",
				Validate: func(payload json.RawMessage) error {
					_, err := decodeReply(payload)
					return err
				},
				Call: func(ctx context.Context, c *backend.Client, id string, payload json.RawMessage, _ string) error {
					p, err := decodeReply(payload)
					if err != nil {
						return err
					}
					return c.Mutate(ctx, http.MethodPost, itemPath(reviewsPath, id, "reply"), p, nil)
				},
			},
			Verb{
				Name:      "delete",
				Title:     "Delete review",
				Confirm:   func([]string) string { return "Delete this review? This cannot be undone." },
				Dangerous: true,
				Target:    TargetOne,
				Success:   "Review deleted",
				Failure:   "Failed to delete review",
				Call:      deleteOne,
			},
			Verb{
				Name:  "bulk-delete",
				Title: "Delete selected reviews",
				Confirm: func(ids []string) string {
					return "Delete " + countLabel(ids, "review", "reviews") + "? This cannot be undone."
				},
				Dangerous:  true,
				Target:     TargetMany,
				Past:       "deleted",
				Infinitive: "delete",
				Call:       deleteOne,
			},
		),
		Columns: []export.Column[domain.ProductReview]{
			{Header: "Date", Value: func(r domain.ProductReview) string { return fmtTime(r.CreatedAt) }},
			{Header: "Product", Value: func(r domain.ProductReview) string { return r.ProductName }},
			{Header: "Customer", Value: func(r domain.ProductReview) string { return r.UserName }},
			{Header: "Rating", Value: func(r domain.ProductReview) string { return strconv.Itoa(r.Rating) }},
			{Header: "Comment", Value: func(r domain.ProductReview) string { return r.Comment }},
			{Header: "Status", Value: domain.ProductReview.ModerationStatus},
			{Header: "Verified Purchase", Value: func(r domain.ProductReview) string { return yesNo(r.IsVerifiedPurchase) }},
			{Header: "Reply", Value: func(r domain.ProductReview) string { return r.AdminReply }},
		},
	}
}
