// Admin list HTTP handlers.
//
// This file exposes the backoffice list pages:
//   - GET  /admin                            (registered pages)
//   - GET  /admin/{resource}                 (current page of the list)
//   - POST /admin/{resource}/events          (apply a view event)
//   - GET  /admin/{resource}/export.csv      (filtered collection as CSV)
//   - POST /admin/{resource}/validate        (form validation only)
//   - POST /admin/{resource}/gate            (open a confirmation)
//   - GET  /admin/{resource}/gate            (current confirmation)
//   - POST /admin/{resource}/gate/confirm    (run the confirmed action)
//   - POST /admin/{resource}/gate/close      (discard the confirmation)
//
// Handlers are transport-thin: they bind input, resolve the resource, call
// the list service and translate errors with failFor.
package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/gate"
	"github.com/tbourn/go-backoffice/internal/http/middleware"
	"github.com/tbourn/go-backoffice/internal/listview"
	"github.com/tbourn/go-backoffice/internal/services"
	"github.com/tbourn/go-backoffice/internal/utils"
)

//
// Service contracts (context-aware)
//

// AdminService resolves list pages by name.
type AdminService interface {
	Resource(name string) (services.Resource, error)
	Names() []string
}

// Archiver stores exported CSV files.
type Archiver interface {
	Archive(ctx context.Context, resource, userID string, rows int, data []byte, now time.Time) (string, error)
}

//
// Handler wiring
//

// Handlers groups the admin and storefront endpoints.
type Handlers struct {
	admin    AdminService
	cart     CartService
	archiver Archiver // nil disables ?archive=true
}

// New constructs Handlers. archiver may be nil.
func New(admin AdminService, cart CartService, archiver Archiver) *Handlers {
	return &Handlers{admin: admin, cart: cart, archiver: archiver}
}

//
// DTOs
//

// ResourcesResponse lists the registered pages.
type ResourcesResponse struct {
	Resources []string `json:"resources" example:"activity-logs,reviews"`
}

// GateResponse wraps the open confirmation.
type GateResponse struct {
	Descriptor gate.Descriptor `json:"descriptor"`
}

// listParams are the query parameters forwarded as server-side pre-filters.
var listParams = []string{"pendingOnly", "includeDeleted"}

func (h *Handlers) resource(c *gin.Context) (services.Resource, bool) {
	r, err := h.admin.Resource(c.Param("resource"))
	if err != nil {
		failFor(c, err)
		return nil, false
	}
	return r, true
}

//
// Handlers
//

// ListResources godoc
// @ID          listResources
// @Summary     List admin pages
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.ResourcesResponse
// @Router      /admin [get]
func (h *Handlers) ListResources(c *gin.Context) {
	ok(c, http.StatusOK, ResourcesResponse{Resources: h.admin.Names()})
}

// List godoc
// @ID          listResource
// @Summary     Current page of a list
// @Description Fetches the collection when needed and renders the stored view state. page/page_size override the stored state; refresh=true refetches.
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID       header  string  false "User ID (demo header)"  example(admin1)
// @Param       resource        path    string  true  "Page name"  example(reviews)
// @Param       page            query   int     false "Page number"  minimum(1)
// @Param       page_size       query   int     false "Items per page"  minimum(1) maximum(500)
// @Param       refresh         query   bool    false "Force a refetch"
// @Param       pendingOnly     query   bool    false "Reviews: only unapproved"
// @Param       includeDeleted  query   bool    false "Pharmacy questions: include deleted"
//
// @Success     200  {object}  services.Page
// @Failure     401  {object}  handlers.ErrorResponse  "Session expired"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown resource"
// @Failure     409  {object}  handlers.ErrorResponse  "Superseded by a newer request"
// @Failure     502  {object}  handlers.ErrorResponse  "Storefront error"
// @Router      /admin/{resource} [get]
func (h *Handlers) List(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	opts := services.ListOptions{
		Refresh:  utils.BoolDefault(c.Query("refresh"), false),
		Page:     utils.AtoiDefault(c.Query("page"), 0),
		PageSize: utils.AtoiDefault(c.Query("page_size"), 0),
		Params:   url.Values{},
	}
	for _, k := range listParams {
		if v := c.Query(k); v != "" {
			opts.Params.Set(k, v)
		}
	}
	page, err := r.List(c.Request.Context(), middleware.UserID(c), opts)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// Event godoc
// @ID          dispatchEvent
// @Summary     Apply a view event
// @Description Filters, sort, pagination and selection changes. set_search is debounced; apply_search fires it now.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string          false "User ID (demo header)"  example(admin1)
// @Param       resource   path    string          true  "Page name"  example(activity-logs)
// @Param       body       body    listview.Event  true  "View event"
//
// @Success     200  {object}  services.Page
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid event"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown resource"
// @Router      /admin/{resource}/events [post]
func (h *Handlers) Event(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	var ev listview.Event
	if err := c.ShouldBindJSON(&ev); err != nil || ev.Type == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	page, err := r.Dispatch(c.Request.Context(), middleware.UserID(c), ev)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// Export godoc
// @ID          exportCSV
// @Summary     Export the filtered list as CSV
// @Description Every row of the filtered and sorted collection, UTF-8 with BOM. archive=true also stores the file in S3.
// @Tags        Admin
// @Produce     text/csv
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin1)
// @Param       resource   path    string  true  "Page name"  example(subscriptions)
// @Param       archive    query   bool    false "Archive to S3"
//
// @Success     200  {string}  string  "CSV file"
// @Header      200  {string}  X-Archive-Key  "Object key when archived"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown resource"
// @Failure     503  {object}  handlers.ErrorResponse  "Archiving not configured"
// @Router      /admin/{resource}/export.csv [get]
func (h *Handlers) Export(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	archive := utils.BoolDefault(c.Query("archive"), false)
	if archive && h.archiver == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeArchiveUnavailable, "export archiving is not configured")
		return
	}

	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	var buf bytes.Buffer
	rows, err := r.Export(ctx, uid, &buf)
	if err != nil {
		failFor(c, err)
		return
	}

	now := time.Now()
	if archive {
		key, err := h.archiver.Archive(ctx, r.Name(), uid, rows, buf.Bytes(), now)
		if err != nil {
			fail(c, http.StatusBadGateway, ErrCodeExportFailed, "archive export: "+err.Error())
			return
		}
		c.Header("X-Archive-Key", key)
		middleware.LoggerFrom(c).Info().Str("key", key).Int("rows", rows).Msg("export archived")
	}

	name := export.Filename(r.Name(), now.Format(time.DateOnly))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Validate godoc
// @ID          validateForm
// @Summary     Validate a form without opening a confirmation
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       resource  path  string                true  "Page name"  example(pharmacy-questions)
// @Param       body      body  services.GateRequest  true  "Verb and payload (verb defaults to create)"
//
// @Success     204  {string}  string  "Valid"
// @Failure     422  {object}  handlers.ErrorResponse  "Field errors"
// @Router      /admin/{resource}/validate [post]
func (h *Handlers) Validate(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	var req services.GateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Verb == "" {
		req.Verb = "create"
	}
	if err := r.Validate(req); err != nil {
		failFor(c, err)
		return
	}
	noContent(c)
}

// OpenGate godoc
// @ID          openGate
// @Summary     Ask for confirmation of an action
// @Description Records the pending action and returns its descriptor. Nothing runs until it is confirmed. A batch verb without ids targets the current selection.
// @Tags        Gate
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                false "User ID (demo header)"  example(admin1)
// @Param       resource   path    string                true  "Page name"  example(reviews)
// @Param       body       body    services.GateRequest  true  "Verb, target ids and payload"
//
// @Success     201  {object}  handlers.GateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown action or bad targets"
// @Failure     422  {object}  handlers.ErrorResponse  "Field errors"
// @Router      /admin/{resource}/gate [post]
func (h *Handlers) OpenGate(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	var req services.GateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Verb) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "verb required")
		return
	}
	d, err := r.OpenGate(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusCreated, GateResponse{Descriptor: d})
}

// PendingGate godoc
// @ID          pendingGate
// @Summary     Current confirmation
// @Tags        Gate
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin1)
// @Param       resource   path    string  true  "Page name"  example(reviews)
// @Success     200  {object}  handlers.GateResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing pending"
// @Router      /admin/{resource}/gate [get]
func (h *Handlers) PendingGate(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	d, err := r.PendingGate(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, GateResponse{Descriptor: d})
}

// ConfirmGate godoc
// @ID          confirmGate
// @Summary     Confirm the pending action
// @Description Runs the action once. Supports idempotency via the Idempotency-Key header (same key → same result, Idempotency-Replayed: true).
// @Tags        Gate
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string             false "User ID (demo header)"  example(admin1)
// @Param       Idempotency-Key  header  string             false "Idempotency key for safe retries"
// @Param       resource         path    string             true  "Page name"  example(subscriptions)
// @Param       body             body    gate.ConfirmInput  false "Reason and optional descriptor id"
//
// @Success     200  {object}  services.ConfirmResult
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing pending"
// @Failure     409  {object}  handlers.ErrorResponse  "Descriptor replaced"
// @Failure     422  {object}  handlers.ErrorResponse  "Reason missing or too short"
// @Router      /admin/{resource}/gate/confirm [post]
func (h *Handlers) ConfirmGate(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	var in gate.ConfirmInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	key, _ := middleware.GetIdempotencyKey(c)
	res, replayed, err := r.ConfirmGate(c.Request.Context(), middleware.UserID(c), key, in)
	if err != nil {
		failFor(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, res)
}

// CloseGate godoc
// @ID          closeGate
// @Summary     Discard the pending action
// @Tags        Gate
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin1)
// @Param       resource   path    string  true  "Page name"  example(reviews)
// @Success     204  {string}  string  "No Content"
// @Router      /admin/{resource}/gate/close [post]
func (h *Handlers) CloseGate(c *gin.Context) {
	r, found := h.resource(c)
	if !found {
		return
	}
	if err := r.CloseGate(c.Request.Context(), middleware.UserID(c)); err != nil {
		failFor(c, err)
		return
	}
	noContent(c)
}
