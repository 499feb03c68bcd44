// Package comments exposes the comment write and read endpoints.
package comments

import (
	"encoding/json"
	"net/http"
	"strconv"

	"threadhub/internal/contextutils"
	"threadhub/internal/response"
	"threadhub/internal/services"
	"threadhub/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Controller handles comment endpoints.
type Controller struct {
	services  *services.Collection
	validator *validation.RequestValidator
	builder   *response.Builder
	logger    *zap.Logger
}

// NewController creates a comment controller.
func NewController(collection *services.Collection, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		services:  collection,
		validator: validation.New(),
		builder:   builder,
		logger:    logger,
	}
}

type createCommentPayload struct {
	PostID          int64  `json:"post_id" validate:"required"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	Text            string `json:"text" validate:"required,min=1"`
	IsAnonymous     bool   `json:"is_anonymous"`
}

type updateCommentPayload struct {
	Text string `json:"text" validate:"required,min=1"`
}

// Create handles POST /api/v1/comments.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var payload createCommentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.builder.BadRequest(w, r, "invalid JSON body")
		return
	}
	if err := c.validator.ValidateStruct(&payload); err != nil {
		c.builder.Error(w, r, err)
		return
	}

	comment, err := c.services.Comments.CreateComment(r.Context(), &services.CreateCommentRequest{
		CompanyID:       contextutils.GetCompanyID(r.Context()),
		PostID:          payload.PostID,
		AuthorID:        contextutils.GetUserID(r.Context()),
		ParentCommentID: payload.ParentCommentID,
		Text:            payload.Text,
		IsAnonymous:     payload.IsAnonymous,
	})
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Created(w, r, comment)
}

// Get handles GET /api/v1/comments/{commentID}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	commentID, ok := c.pathID(w, r, "commentID")
	if !ok {
		return
	}

	comment, err := c.services.Comments.GetComment(r.Context(), contextutils.GetCompanyID(r.Context()), commentID)
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, comment)
}

// Update handles PUT /api/v1/comments/{commentID}.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	commentID, ok := c.pathID(w, r, "commentID")
	if !ok {
		return
	}

	var payload updateCommentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.builder.BadRequest(w, r, "invalid JSON body")
		return
	}
	if err := c.validator.ValidateStruct(&payload); err != nil {
		c.builder.Error(w, r, err)
		return
	}

	comment, err := c.services.Comments.UpdateComment(r.Context(), &services.UpdateCommentRequest{
		CompanyID: contextutils.GetCompanyID(r.Context()),
		CommentID: commentID,
		EditorID:  contextutils.GetUserID(r.Context()),
		Text:      payload.Text,
	})
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.Success(w, r, comment)
}

// Delete handles DELETE /api/v1/comments/{commentID}.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	commentID, ok := c.pathID(w, r, "commentID")
	if !ok {
		return
	}

	err := c.services.Comments.DeleteComment(r.Context(), &services.DeleteCommentRequest{
		CompanyID:     contextutils.GetCompanyID(r.Context()),
		CommentID:     commentID,
		RequesterID:   contextutils.GetUserID(r.Context()),
		RequesterRole: contextutils.GetUserRole(r.Context()),
	})
	if err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.NoContent(w, r)
}

// Like handles POST /api/v1/comments/{commentID}/like.
func (c *Controller) Like(w http.ResponseWriter, r *http.Request) {
	commentID, ok := c.pathID(w, r, "commentID")
	if !ok {
		return
	}
	if err := c.services.Comments.LikeComment(r.Context(), contextutils.GetCompanyID(r.Context()), commentID); err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.NoContent(w, r)
}

// Unlike handles DELETE /api/v1/comments/{commentID}/like.
func (c *Controller) Unlike(w http.ResponseWriter, r *http.Request) {
	commentID, ok := c.pathID(w, r, "commentID")
	if !ok {
		return
	}
	if err := c.services.Comments.UnlikeComment(r.Context(), contextutils.GetCompanyID(r.Context()), commentID); err != nil {
		c.builder.Error(w, r, err)
		return
	}
	c.builder.NoContent(w, r)
}

func (c *Controller) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		c.builder.BadRequest(w, r, "invalid "+name)
		return 0, false
	}
	return id, true
}
