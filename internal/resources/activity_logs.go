package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/listview"
)

const activityLogsPath = "/admin/activity-logs"

// ActivityLogs is the admin audit-trail page.
func ActivityLogs() *Definition[domain.ActivityLog] {
	deleteOne := func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
		return c.Mutate(ctx, http.MethodDelete, itemPath(activityLogsPath, id, ""), nil, nil)
	}
	return &Definition[domain.ActivityLog]{
		Name: ActivityLogsName,
		Path: activityLogsPath,
		Spec: &listview.Spec[domain.ActivityLog]{
			Name: ActivityLogsName,
			ID:   func(l domain.ActivityLog) string { return l.ID },
			SearchFields: []func(domain.ActivityLog) string{
				func(l domain.ActivityLog) string { return l.Description },
				func(l domain.ActivityLog) string { return l.UserName },
				func(l domain.ActivityLog) string { return l.EntityName },
			},
			Categories: map[string]func(domain.ActivityLog) string{
				"activityType": func(l domain.ActivityLog) string { return l.ActivityType },
				"entityType":   func(l domain.ActivityLog) string { return l.EntityType },
			},
			Date: func(l domain.ActivityLog) time.Time { return l.CreatedAt },
			SortFields: map[string]listview.SortField[domain.ActivityLog]{
				"createdAt":    listview.TimeField(func(l domain.ActivityLog) time.Time { return l.CreatedAt }),
				"activityType": listview.StringField(func(l domain.ActivityLog) string { return l.ActivityType }),
				"userName":     listview.StringField(func(l domain.ActivityLog) string { return l.UserName }),
			},
			DefaultSort: "createdAt",
		},
		Verbs: verbs(
			Verb{
				Name:      "delete",
				Title:     "Delete activity log",
				Confirm:   func([]string) string { return "Delete this activity log entry? This cannot be undone." },
				Dangerous: true,
				Target:    TargetOne,
				Success:   "Activity log deleted",
				Failure:   "Failed to delete activity log",
				Call:      deleteOne,
			},
			Verb{
				Name:  "bulk-delete",
				Title: "Delete selected logs",
				Confirm: func(ids []string) string {
					return "Delete " + countLabel(ids, "activity log", "activity logs") + "? This cannot be undone."
				},
				Dangerous:  true,
				Target:     TargetMany,
				Past:       "deleted",
				Infinitive: "delete",
				Call:       deleteOne,
			},
			Verb{
				Name:      "clear-all",
				Title:     "Clear all activity logs",
				Confirm:   func([]string) string { return "Delete every activity log entry? This cannot be undone." },
				Dangerous: true,
				Target:    TargetNone,
				Success:   "All activity logs cleared",
				Failure:   "Failed to clear activity logs",
				Call: func(ctx context.Context, c *backend.Client, _ string, _ json.RawMessage, _ string) error {
					return c.Mutate(ctx, http.MethodDelete, activityLogsPath, nil, nil)
				},
			},
		),
		Columns: []export.Column[domain.ActivityLog]{
			{Header: "Date", Value: func(l domain.ActivityLog) string { return fmtTime(l.CreatedAt) }},
			{Header: "Activity", Value: func(l domain.ActivityLog) string { return l.ActivityType }},
			{Header: "Entity Type", Value: func(l domain.ActivityLog) string { return l.EntityType }},
			{Header: "Entity", Value: func(l domain.ActivityLog) string { return l.EntityName }},
			{Header: "Description", Value: func(l domain.ActivityLog) string { return l.Description }},
			{Header: "User", Value: func(l domain.ActivityLog) string { return l.UserName }},
			{Header: "IP Address", Value: func(l domain.ActivityLog) string { return l.IPAddress }},
		},
	}
}
