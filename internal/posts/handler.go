// Package posts implements the post lifecycle HTTP API: listing and reading,
// owner-gated mutation, and the engagement operations open to any
// authenticated user.
package posts

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/auth"
	"github.com/inkwell-app/backend/internal/models"
	"github.com/inkwell-app/backend/internal/web"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	popularTagLimit = 20
)

// PostStore defines the interface for post persistence.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	ListPublished(ctx context.Context, page, limit int, search, tag string) ([]models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID string, page, limit int, status string) ([]models.Post, int64, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	GetAndIncrementViews(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, upd models.PostUpdate) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, userID string) (int, bool, error)
	AddComment(ctx context.Context, id string, comment models.Comment) (*models.Post, error)
	PopularTags(ctx context.Context, limit int) ([]models.TagCount, error)
}

// UserGetter resolves user records for author snapshots and projections.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds post HTTP handlers.
type Handler struct {
	store PostStore
	users UserGetter
	log   *zap.Logger
}

func NewHandler(store PostStore, users UserGetter, log *zap.Logger) *Handler {
	return &Handler{store: store, users: users, log: log}
}

// postDetail is the single-post payload; it carries the author's public
// projection in place of the bare author id.
type postDetail struct {
	models.Post
	Author *models.PublicUser `json:"author"`
}

func parsePaging(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// List returns one page of published posts, newest first, content omitted.
// Optional search (text match) and tag (exact membership) filters combine.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePaging(r)
	search := r.URL.Query().Get("search")
	tag := r.URL.Query().Get("tag")

	list, total, err := h.store.ListPublished(r.Context(), page, limit, search, tag)
	if err != nil {
		h.log.Error("list posts", zap.Error(err))
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"posts":      list,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// ListMine returns one page of the caller's own posts, any status unless
// filtered, with full content.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	page, limit := parsePaging(r)
	status := r.URL.Query().Get("status")
	if status != "" && status != "all" && !models.ValidStatus(status) {
		web.Error(w, apierr.Validation("Unknown status filter"))
		return
	}

	list, total, err := h.store.ListByAuthor(r.Context(), claims.ID, page, limit, status)
	if err != nil {
		h.log.Error("list own posts", zap.Error(err))
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"posts":      list,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// Get returns the full post, incrementing its view counter as an observable
// side effect of the read.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetAndIncrementViews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("get post", zap.Error(err))
		}
		web.Error(w, err)
		return
	}

	detail := postDetail{Post: *post}
	if author, err := h.users.GetByID(r.Context(), post.Author); err == nil && author != nil {
		pub := author.Public()
		detail.Author = &pub
	}
	web.JSON(w, http.StatusOK, map[string]any{"post": detail})
}

// Create stores a new post for the caller. The author name is snapshotted
// from the user's current name and does not track later renames.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		web.Error(w, apierr.Validation("Title and content are required"))
		return
	}
	if req.Status == "" {
		req.Status = models.StatusDraft
	}
	if !models.ValidStatus(req.Status) {
		web.Error(w, apierr.Validation("Unknown post status"))
		return
	}

	claims := auth.ClaimsFrom(r.Context())
	author, err := h.users.GetByID(r.Context(), claims.ID)
	if err != nil {
		h.log.Error("get author", zap.Error(err))
		web.Error(w, err)
		return
	}
	if author == nil {
		web.Error(w, apierr.NotFound("User not found"))
		return
	}

	post, err := h.store.Create(r.Context(), &models.Post{
		Title:      req.Title,
		Content:    req.Content,
		Author:     author.ID,
		AuthorName: author.Name,
		Tags:       req.Tags,
		Status:     req.Status,
		Featured:   req.Featured,
	})
	if err != nil {
		h.log.Error("create post", zap.Error(err))
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{"post": post})
}

// Update applies a partial mutation to a post the caller owns.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePostRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}

	upd := models.PostUpdate{Tags: req.Tags, Featured: req.Featured}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			web.Error(w, apierr.Validation("Title cannot be empty"))
			return
		}
		upd.Title = &title
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			web.Error(w, apierr.Validation("Content cannot be empty"))
			return
		}
		upd.Content = &content
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			web.Error(w, apierr.Validation("Unknown post status"))
			return
		}
		upd.Status = req.Status
	}

	id := chi.URLParam(r, "id")
	if err := h.requireOwner(r, id); err != nil {
		web.Error(w, err)
		return
	}

	post, err := h.store.Update(r.Context(), id, upd)
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("update post", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"post": post})
}

// Delete removes a post the caller owns.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requireOwner(r, id); err != nil {
		web.Error(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("delete post", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// requireOwner fails with NotFoundError when the post is absent and
// ForbiddenError when the caller is not its author.
func (h *Handler) requireOwner(r *http.Request, id string) error {
	post, err := h.store.Get(r.Context(), id)
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("get post", zap.Error(err))
		}
		return err
	}
	if post.Author != auth.ClaimsFrom(r.Context()).ID {
		return apierr.Forbidden("Not authorized to modify this post")
	}
	return nil
}

// ToggleLike flips the caller's like on a post. Anyone authenticated may
// like any post, including their own.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	count, liked, err := h.store.ToggleLike(r.Context(), chi.URLParam(r, "id"), claims.ID)
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("toggle like", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, models.LikeResponse{LikesCount: count, IsLiked: liked})
}

// AddComment appends a comment to a post. The commenter's name is
// snapshotted at write time.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req models.AddCommentRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		web.Error(w, apierr.Validation("Comment content is required"))
		return
	}

	claims := auth.ClaimsFrom(r.Context())
	commenter, err := h.users.GetByID(r.Context(), claims.ID)
	if err != nil {
		h.log.Error("get commenter", zap.Error(err))
		web.Error(w, err)
		return
	}
	if commenter == nil {
		web.Error(w, apierr.NotFound("User not found"))
		return
	}

	post, err := h.store.AddComment(r.Context(), chi.URLParam(r, "id"), models.Comment{
		Author:     commenter.ID,
		AuthorName: commenter.Name,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if apierr.From(err) == apierr.ErrInternal {
			h.log.Error("add comment", zap.Error(err))
		}
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{"post": post})
}

// PopularTags returns tag frequencies across published posts, most used
// first.
func (h *Handler) PopularTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.PopularTags(r.Context(), popularTagLimit)
	if err != nil {
		h.log.Error("popular tags", zap.Error(err))
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"tags": tags})
}
