package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tbourn/go-backoffice/internal/domain"
)

// GetProduct fetches one catalog product.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.Get(ctx, "/products/"+url.PathEscape(id), &p)
	return p, err
}

// ActiveQuestions fetches the live, active pharmacy questionnaire.
func (c *Client) ActiveQuestions(ctx context.Context) ([]domain.PharmacyQuestion, error) {
	items, _, err := ListAll[domain.PharmacyQuestion](ctx, c, "/pharmacy-questions", url.Values{"isActive": {"true"}})
	return items, err
}

// AddCartItem adds item to the cart of the user attached to ctx.
func (c *Client) AddCartItem(ctx context.Context, item domain.CartItem) error {
	return c.Mutate(ctx, http.MethodPost, "/cart/items", item, nil)
}
