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

const pharmacyQuestionsPath = "/admin/pharmacy-questions"

func validateQuestion(payload json.RawMessage) error {
	_, err := decodeForm[domain.PharmacyQuestionInput](payload)
	return err
}

// PharmacyQuestions is the qualification questionnaire editor. Soft-deleted
// questions are fetched too so they can be filtered and restored.
func PharmacyQuestions() *Definition[domain.PharmacyQuestion] {
	simple := func(method, suffix string) CallFunc {
		return func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
			return c.Mutate(ctx, method, itemPath(pharmacyQuestionsPath, id, suffix), nil, nil)
		}
	}
	return &Definition[domain.PharmacyQuestion]{
		Name:   PharmacyQuestionsName,
		Path:   pharmacyQuestionsPath,
		Params: map[string]string{"includeDeleted": "true"},
		Spec: &listview.Spec[domain.PharmacyQuestion]{
			Name: PharmacyQuestionsName,
			ID:   func(q domain.PharmacyQuestion) string { return q.ID },
			SearchFields: []func(domain.PharmacyQuestion) string{
				func(q domain.PharmacyQuestion) string { return q.QuestionText },
			},
			Categories: map[string]func(domain.PharmacyQuestion) string{
				"status": domain.PharmacyQuestion.ActiveStatus,
				"state":  domain.PharmacyQuestion.Lifecycle,
			},
			Date: func(q domain.PharmacyQuestion) time.Time { return q.CreatedAt },
			SortFields: map[string]listview.SortField[domain.PharmacyQuestion]{
				"displayOrder": listview.NumberField(func(q domain.PharmacyQuestion) float64 { return float64(q.DisplayOrder) }),
				"questionText": listview.StringField(func(q domain.PharmacyQuestion) string { return q.QuestionText }),
				"createdAt":    listview.TimeField(func(q domain.PharmacyQuestion) time.Time { return q.CreatedAt }),
			},
			DefaultSort: "displayOrder",
		},
		Verbs: verbs(
			Verb{
				Name:      "delete",
				Title:     "Delete question",
				Confirm:   func([]string) string { return "Delete this question? It can be restored later." },
				Dangerous: true,
				Target:    TargetOne,
				Success:   "Question deleted",
				Failure:   "Failed to delete question",
				Call:      simple(http.MethodDelete, ""),
			},
			Verb{
				Name:    "restore",
				Title:   "Restore question",
				Confirm: func([]string) string { return "Restore this question?" },
				Target:  TargetOne,
				Success: "Question restored",
				Failure: "Failed to restore question",
				Call:    simple(http.MethodPost, "restore"),
			},
			Verb{
				Name:    "toggle-status",
				Title:   "Change question status",
				Confirm: func([]string) string { return "Toggle whether this question is shown to customers?" },
				Target:  TargetOne,
				Success: "Question status updated",
				Failure: "Failed to update question status",
				Call:    simple(http.MethodPatch, "toggle-status"),
			},
			Verb{
				Name:     "create",
				Title:    "Create question",
				Confirm:  func([]string) string { return "Create this question?" },
				Target:   TargetNone,
				Success:  "Question created",
				Failure:  "Failed to create question",
				Validate: validateQuestion,
				Call: func(ctx context.Context, c *backend.Client, _ string, payload json.RawMessage, _ string) error {
					in, err := decodeForm[domain.PharmacyQuestionInput](payload)
					if err != nil {
						return err
					}
					return c.Mutate(ctx, http.MethodPost, pharmacyQuestionsPath, in, nil)
				},
			},
			Verb{
				Name:     "update",
				Title:    "Update question",
				Confirm:  func([]string) string { return "Save changes to this question?" },
				Target:   TargetOne,
				Success:  "Question updated",
				Failure:  "Failed to update question",
				Validate: validateQuestion,
				Call: func(ctx context.Context, c *backend.Client, id string, payload json.RawMessage, _ string) error {
					in, err := decodeForm[domain.PharmacyQuestionInput](payload)
					if err != nil {
						return err
					}
					return c.Mutate(ctx, http.MethodPut, itemPath(pharmacyQuestionsPath, id, ""), in, nil)
				},
			},
		),
		Columns: []export.Column[domain.PharmacyQuestion]{
			{Header: "Order", Value: func(q domain.PharmacyQuestion) string { return strconv.Itoa(q.DisplayOrder) }},
			{Header: "Question", Value: func(q domain.PharmacyQuestion) string { return q.QuestionText }},
			{Header: "Status", Value: domain.PharmacyQuestion.ActiveStatus},
			{Header: "Deleted", Value: func(q domain.PharmacyQuestion) string { return yesNo(q.IsDeleted) }},
			{Header: "Options", Value: func(q domain.PharmacyQuestion) string { return strconv.Itoa(len(q.Options)) }},
			{Header: "Created", Value: func(q domain.PharmacyQuestion) string { return fmtTime(q.CreatedAt) }},
		},
	}
}
