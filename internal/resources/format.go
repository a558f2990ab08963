package resources

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-backoffice/internal/domain"
)

const exportTimeLayout = "2006-01-02 15:04:05"

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// decodeForm decodes payload into T and runs its validation.
func decodeForm[T interface{ Validate() domain.FieldErrors }](payload json.RawMessage) (T, error) {
	var in T
	if len(payload) == 0 {
		return in, domain.FieldErrors{"payload": "form data is required"}
	}
	if err := json.Unmarshal(payload, &in); err != nil {
		return in, domain.FieldErrors{"payload": "malformed form data"}
	}
	if n, ok := any(&in).(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if err := in.Validate().Err(); err != nil {
		return in, err
	}
	return in, nil
}

type replyPayload struct {
	Reply string `json:"reply"`
}

func decodeReply(payload json.RawMessage) (replyPayload, error) {
	var p replyPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return p, domain.FieldErrors{"reply": "malformed reply"}
		}
	}
	p.Reply = strings.TrimSpace(p.Reply)
	if p.Reply == "" {
		return p, domain.FieldErrors{"reply": "reply is required"}
	}
	return p, nil
}
