// Package services – CartService
//
// CartService implements storefront add-to-cart behind the pharmacy
// qualification gate. Products flagged requiresPharmacyQuestions are not
// added right away: the request is parked in the shopper's qualify.Machine
// and the active questionnaire is returned. SubmitQuestionnaire evaluates
// the answers and resumes (or drops) the parked request exactly once.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/qualify"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CartService coordinates guarded add-to-cart requests.
type CartService struct {
	Client   *backend.Client
	Machines *qualify.Registry
	Log      zerolog.Logger
}

// AddResult reports what AddToCart did.
type AddResult struct {
	// Added is true when the item reached the cart.
	Added bool `json:"added"`
	// Pending names the deferred request while qualification is required.
	Pending   string                    `json:"pending,omitempty"`
	Questions []domain.PharmacyQuestion `json:"questions,omitempty"`
}

// SubmitResult reports the questionnaire decision.
type SubmitResult struct {
	Passed bool `json:"passed"`
	Added  bool `json:"added"`
}

// NewCartService returns a service with a fresh machine registry.
func NewCartService(c *backend.Client, log zerolog.Logger) *CartService {
	return &CartService{Client: c, Machines: qualify.NewRegistry(), Log: log}
}

// AddToCart adds item for userID, or defers it behind the questionnaire when
// the product requires qualification.
func (s *CartService) AddToCart(ctx context.Context, userID string, item domain.CartItem) (*AddResult, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "AddToCart",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("product.id", item.ProductID),
		),
	)
	defer span.End()

	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	ctx = backend.WithUser(ctx, userID)
	product, err := s.Client.GetProduct(ctx, item.ProductID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	label := fmt.Sprintf("add %s x%d", product.Name, item.Quantity)
	err = s.Machines.For(userID).Request(ctx, label, product.RequiresPharmacyQuestions, func(ctx context.Context) error {
		return s.Client.AddCartItem(backend.WithUser(ctx, userID), item)
	})
	switch {
	case errors.Is(err, qualify.ErrQualificationRequired):
		qs, qerr := s.questions(ctx)
		if qerr != nil {
			return nil, qerr
		}
		span.SetAttributes(attribute.Bool("deferred", true))
		return &AddResult{Pending: label, Questions: qs}, nil
	case err != nil:
		return nil, err
	}
	return &AddResult{Added: true}, nil
}

// SubmitQuestionnaire evaluates answers against the active questionnaire and
// resolves the parked request of userID. An incomplete submission leaves the
// request parked.
func (s *CartService) SubmitQuestionnaire(ctx context.Context, userID string, answers []domain.QuestionAnswer) (*SubmitResult, error) {
	tr := otel.Tracer("services/CartService")
	ctx, span := tr.Start(ctx, "SubmitQuestionnaire",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.Int("answers", len(answers))),
	)
	defer span.End()

	m := s.Machines.For(userID)
	if st, _ := m.State(); st != qualify.Awaiting {
		return nil, qualify.ErrNothingPending
	}
	qs, err := s.questions(backend.WithUser(ctx, userID))
	if err != nil {
		return nil, err
	}
	passed, err := Evaluate(qs, answers)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("passed", passed))

	err = m.Resolve(ctx, passed)
	switch {
	case errors.Is(err, qualify.ErrNotQualified):
		return &SubmitResult{Passed: false}, nil
	case err != nil:
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("resume add to cart")
		return &SubmitResult{Passed: true}, err
	}
	return &SubmitResult{Passed: true, Added: true}, nil
}

// questions returns the live, active questions in display order.
func (s *CartService) questions(ctx context.Context) ([]domain.PharmacyQuestion, error) {
	all, err := s.Client.ActiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	qs := all[:0]
	for _, q := range all {
		if q.IsActive && !q.IsDeleted {
			qs = append(qs, q)
		}
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].DisplayOrder < qs[j].DisplayOrder })
	return qs, nil
}

// Evaluate decides a questionnaire: every question needs exactly one answer
// naming one of its options, and the shopper qualifies unless a
// disqualifying option was chosen. Options without an id are matched by
// their text.
func Evaluate(qs []domain.PharmacyQuestion, answers []domain.QuestionAnswer) (bool, error) {
	chosen := make(map[string]string, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = a.OptionID
	}
	passed := true
	for _, q := range qs {
		optID, ok := chosen[q.ID]
		if !ok || optID == "" {
			return false, fmt.Errorf("%w: %s", ErrIncompleteAnswers, q.ID)
		}
		found := false
		for _, o := range q.Options {
			if o.ID == optID || (o.ID == "" && o.OptionText == optID) {
				found = true
				if o.IsDisqualifying {
					passed = false
				}
				break
			}
		}
		if !found {
			return false, fmt.Errorf("%w: question %s", ErrUnknownOption, q.ID)
		}
	}
	return passed, nil
}
