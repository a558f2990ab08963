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

const vatRatesPath = "/admin/vat-rates"

func decodeVATRate(payload json.RawMessage) (domain.VATRateInput, error) {
	in, err := decodeForm[domain.VATRateInput](payload)
	in.CountryCode = domain.NormalizeCountry(in.CountryCode)
	return in, err
}

// VATRates is the tax rate configuration page.
func VATRates() *Definition[domain.VATRate] {
	return &Definition[domain.VATRate]{
		Name: VATRatesName,
		Path: vatRatesPath,
		Spec: &listview.Spec[domain.VATRate]{
			Name: VATRatesName,
			ID:   func(v domain.VATRate) string { return v.ID },
			SearchFields: []func(domain.VATRate) string{
				func(v domain.VATRate) string { return v.Name },
				func(v domain.VATRate) string { return v.CountryCode },
			},
			Categories: map[string]func(domain.VATRate) string{
				"countryCode": func(v domain.VATRate) string { return v.CountryCode },
				"status":      domain.VATRate.ActiveStatus,
			},
			Date: func(v domain.VATRate) time.Time { return v.CreatedAt },
			SortFields: map[string]listview.SortField[domain.VATRate]{
				"name":        listview.StringField(func(v domain.VATRate) string { return v.Name }),
				"rate":        listview.NumberField(func(v domain.VATRate) float64 { return v.Rate }),
				"countryCode": listview.StringField(func(v domain.VATRate) string { return v.CountryCode }),
				"createdAt":   listview.TimeField(func(v domain.VATRate) time.Time { return v.CreatedAt }),
			},
			DefaultSort: "countryCode",
		},
		Verbs: verbs(
			Verb{
				Name:      "delete",
				Title:     "Delete VAT rate",
				Confirm:   func([]string) string { return "Delete this VAT rate? Products using it fall back to the default rate." },
				Dangerous: true,
				Target:    TargetOne,
				Success:   "VAT rate deleted",
				Failure:   "Failed to delete VAT rate",
				Call: func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
					return c.Mutate(ctx, http.MethodDelete, itemPath(vatRatesPath, id, ""), nil, nil)
				},
			},
			Verb{
				Name:    "toggle-status",
				Title:   "Change VAT rate status",
				Confirm: func([]string) string { return "Toggle whether this VAT rate is active?" },
				Target:  TargetOne,
				Success: "VAT rate status updated",
				Failure: "Failed to update VAT rate status",
				Call: func(ctx context.Context, c *backend.Client, id string, _ json.RawMessage, _ string) error {
					return c.Mutate(ctx, http.MethodPatch, itemPath(vatRatesPath, id, "toggle-status"), nil, nil)
				},
			},
			Verb{
				Name:    "create",
				Title:   "Create VAT rate",
				Confirm: func([]string) string { return "Create this VAT rate?" },
				Target:  TargetNone,
				Success: "VAT rate created",
				Failure: "Failed to create VAT rate",
				Validate: func(payload json.RawMessage) error {
					_, err := decodeVATRate(payload)
					return err
				},
				Call: func(ctx context.Context, c *backend.Client, _ string, payload json.RawMessage, _ string) error {
					in, err := decodeVATRate(payload)
					if err != nil {
						return err
					}
					return c.Mutate(ctx, http.MethodPost, vatRatesPath, in, nil)
				},
			},
			Verb{
				Name:    "update",
				Title:   "Update VAT rate",
				Confirm: func([]string) string { return "Save changes to this VAT rate?" },
				Target:  TargetOne,
				Success: "VAT rate updated",
				Failure: "Failed to update VAT rate",
				Validate: func(payload json.RawMessage) error {
					_, err := decodeVATRate(payload)
					return err
				},
				Call: func(ctx context.Context, c *backend.Client, id string, payload json.RawMessage, _ string) error {
					in, err := decodeVATRate(payload)
					if err != nil {
						return err
					}
					return c.Mutate(ctx, http.MethodPut, itemPath(vatRatesPath, id, ""), in, nil)
				},
			},
		),
		Columns: []export.Column[domain.VATRate]{
			{Header: "Name", Value: func(v domain.VATRate) string { return v.Name }},
			{Header: "Country", Value: func(v domain.VATRate) string { return v.CountryCode }},
			{Header: "Rate (%)", Value: func(v domain.VATRate) string { return fmtFloat(v.Rate) }},
			{Header: "Status", Value: domain.VATRate.ActiveStatus},
			{Header: "Default", Value: func(v domain.VATRate) string { return yesNo(v.IsDefault) }},
			{Header: "Created", Value: func(v domain.VATRate) string { return fmtTime(v.CreatedAt) }},
		},
	}
}
