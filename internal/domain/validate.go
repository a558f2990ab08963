package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// MinQuestionTextLength is the shortest accepted pharmacy question.
const MinQuestionTextLength = 5

// FieldErrors maps a form field path to its validation message. A non-empty
// FieldErrors is returned as an error and nothing is sent to the backend.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := slices.Sorted(maps.Keys(fe))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns fe as an error, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// PharmacyQuestionInput is the create/update form of a pharmacy question.
type PharmacyQuestionInput struct {
	QuestionText string           `json:"questionText"`
	IsActive     bool             `json:"isActive"`
	DisplayOrder int              `json:"displayOrder"`
	Options      []QuestionOption `json:"options"`
}

// Normalize gives options sent without a displayOrder their 1-based position.
func (in *PharmacyQuestionInput) Normalize() {
	for i := range in.Options {
		if in.Options[i].DisplayOrder == 0 {
			in.Options[i].DisplayOrder = i + 1
		}
	}
}

// Validate checks the form. A question needs exactly one safe option and
// exactly one disqualifying option. Duplicate displayOrder values across
// questions or options are allowed; displayOrder only orders the list.
func (in PharmacyQuestionInput) Validate() FieldErrors {
	fe := FieldErrors{}
	text := strings.TrimSpace(in.QuestionText)
	switch {
	case text == "":
		fe["questionText"] = "question text is required"
	case utf8.RuneCountInString(text) < MinQuestionTextLength:
		fe["questionText"] = fmt.Sprintf("question text must be at least %d characters", MinQuestionTextLength)
	}
	if in.DisplayOrder < 1 {
		fe["displayOrder"] = "display order must be a positive integer"
	}

	safe, disq := 0, 0
	for i, o := range in.Options {
		if strings.TrimSpace(o.OptionText) == "" {
			fe[fmt.Sprintf("options[%d].optionText", i)] = "option text is required"
		}
		if o.DisplayOrder < 1 {
			fe[fmt.Sprintf("options[%d].displayOrder", i)] = "display order must be a positive integer"
		}
		if o.IsDisqualifying {
			disq++
		} else {
			safe++
		}
	}
	switch {
	case disq == 0:
		fe["options"] = "exactly one disqualifying option is required"
	case disq > 1:
		fe["options"] = "only one option may be disqualifying"
	case safe == 0:
		fe["options"] = "exactly one safe option is required"
	case safe > 1:
		fe["options"] = "only one option may be marked safe"
	}
	return fe
}

// VATRateInput is the create/update form of a VAT rate.
type VATRateInput struct {
	Name        string  `json:"name"`
	CountryCode string  `json:"countryCode"`
	Rate        float64 `json:"rate"`
	IsActive    bool    `json:"isActive"`
	IsDefault   bool    `json:"isDefault"`
	Description string  `json:"description,omitempty"`
}

// Validate checks the form.
func (in VATRateInput) Validate() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		fe["name"] = "name is required"
	}
	cc := NormalizeCountry(in.CountryCode)
	if len(cc) != 2 || strings.IndexFunc(cc, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		fe["countryCode"] = "country code must be two letters"
	}
	if in.Rate < 0 || in.Rate > 100 {
		fe["rate"] = "rate must be between 0 and 100"
	}
	return fe
}
