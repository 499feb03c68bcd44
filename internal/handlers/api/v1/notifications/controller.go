// Package notifications exposes the recipient-facing notification
// endpoints.
package notifications

import (
	"net/http"
	"strconv"

	"threadhub/internal/contextutils"
	"threadhub/internal/models"
	"threadhub/internal/response"
	"threadhub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Controller handles notification endpoints.
type Controller struct {
	services *services.Collection
	builder  *response.Builder
	logger   *zap.Logger
}

// NewController creates a notification controller.
func NewController(collection *services.Collection, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		services: collection,
		builder:  builder,
		logger:   logger,
	}
}

// List handles GET /api/v1/notifications.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	params := models.PaginationParams{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	page, err := c.services.Notifications.ListNotifications(r.Context(), &services.ListNotificationsRequest{
		CompanyID:  contextutils.GetCompanyID(r.Context()),
		UserID:     contextutils.GetUserID(r.Context()),
		Pagination: params,
	})
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, page)
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (c *Controller) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := c.services.Notifications.UnreadCount(r.Context(),
		contextutils.GetCompanyID(r.Context()), contextutils.GetUserID(r.Context()))
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, map[string]int64{"unread_count": count})
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read.
func (c *Controller) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || notificationID <= 0 {
		c.builder.BadRequest(w, r, "invalid notificationID")
		return
	}

	err = c.services.Notifications.MarkRead(r.Context(),
		contextutils.GetCompanyID(r.Context()), contextutils.GetUserID(r.Context()), notificationID)
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.NoContent(w, r)
}

// MarkAllRead handles POST /api/v1/notifications/read-all.
func (c *Controller) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := c.services.Notifications.MarkAllRead(r.Context(),
		contextutils.GetCompanyID(r.Context()), contextutils.GetUserID(r.Context()))
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, map[string]int64{"updated": updated})
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}
