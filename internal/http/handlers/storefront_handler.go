// Storefront HTTP handlers.
//
// This file exposes the guarded add-to-cart flow:
//   - POST /storefront/cart/items        (add, or defer behind the questionnaire)
//   - POST /storefront/qualification     (submit answers, resume the deferred add)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/http/middleware"
	"github.com/tbourn/go-backoffice/internal/services"
)

// CartService defines the qualification-guarded cart operations.
type CartService interface {
	AddToCart(ctx context.Context, userID string, item domain.CartItem) (*services.AddResult, error)
	SubmitQuestionnaire(ctx context.Context, userID string, answers []domain.QuestionAnswer) (*services.SubmitResult, error)
}

// QualificationRequest carries the questionnaire answers.
type QualificationRequest struct {
	Answers []domain.QuestionAnswer `json:"answers" binding:"required"`
}

// AddCartItem godoc
// @ID          addCartItem
// @Summary     Add a product to the cart
// @Description Products that require pharmacy questions are deferred: the response is 202 with the questionnaire, and the add runs once the answers pass.
// @Tags        Storefront
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string           false "User ID (demo header)"  example(shopper1)
// @Param       body       body    domain.CartItem  true  "Product and quantity"
//
// @Success     201  {object}  services.AddResult  "Added"
// @Success     202  {object}  services.AddResult  "Qualification required"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /storefront/cart/items [post]
func (h *Handlers) AddCartItem(c *gin.Context) {
	var item domain.CartItem
	if err := c.ShouldBindJSON(&item); err != nil || item.ProductID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "productId and quantity required")
		return
	}
	res, err := h.cart.AddToCart(c.Request.Context(), middleware.UserID(c), item)
	if err != nil {
		failFor(c, err)
		return
	}
	if !res.Added {
		ok(c, http.StatusAccepted, res)
		return
	}
	ok(c, http.StatusCreated, res)
}

// SubmitQualification godoc
// @ID          submitQualification
// @Summary     Submit the pharmacy questionnaire
// @Tags        Storefront
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                         false "User ID (demo header)"  example(shopper1)
// @Param       body       body    handlers.QualificationRequest  true  "Answers"
//
// @Success     200  {object}  services.SubmitResult
// @Failure     400  {object}  handlers.ErrorResponse  "Incomplete answers"
// @Failure     409  {object}  handlers.ErrorResponse  "Nothing pending"
// @Router      /storefront/qualification [post]
func (h *Handlers) SubmitQualification(c *gin.Context) {
	var req QualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "answers required")
		return
	}
	res, err := h.cart.SubmitQuestionnaire(c.Request.Context(), middleware.UserID(c), req.Answers)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
