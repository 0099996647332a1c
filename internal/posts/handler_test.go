package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/auth"
	"github.com/inkwell-app/backend/internal/middleware"
	"github.com/inkwell-app/backend/internal/models"
)

// ---------------------------------------------------------------------------
// in-memory fakes mirroring the MongoDB store's semantics
// ---------------------------------------------------------------------------

var errPostNotFound = apierr.NotFound("Post not found")

type fakePostStore struct {
	posts map[string]*models.Post
	seq   int
	base  time.Time
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[string]*models.Post{}, base: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakePostStore) Create(_ context.Context, post *models.Post) (*models.Post, error) {
	f.seq++
	post.ID = primitive.NewObjectID()
	post.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Second)
	post.UpdatedAt = post.CreatedAt
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Likes = []string{}
	post.Comments = []models.Comment{}
	f.posts[post.ID.Hex()] = post
	return post, nil
}

func (f *fakePostStore) matching(filter func(*models.Post) bool) []*models.Post {
	var out []*models.Post
	for _, p := range f.posts {
		if filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func window(all []*models.Post, pageNum, limit int, omitContent bool) []models.Post {
	start := (pageNum - 1) * limit
	if start >= len(all) {
		return []models.Post{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]models.Post, 0, end-start)
	for _, p := range all[start:end] {
		cp := *p
		if omitContent {
			cp.Content = ""
		}
		out = append(out, cp)
	}
	return out
}

func (f *fakePostStore) ListPublished(_ context.Context, pageNum, limit int, search, tag string) ([]models.Post, int64, error) {
	all := f.matching(func(p *models.Post) bool {
		if p.Status != models.StatusPublished {
			return false
		}
		if search != "" && !strings.Contains(p.Title, search) && !strings.Contains(p.Content, search) {
			return false
		}
		if tag != "" {
			found := false
			for _, t := range p.Tags {
				if t == tag {
					found = true
				}
			}
			if !found {
				return false
			}
		}
		return true
	})
	return window(all, pageNum, limit, true), int64(len(all)), nil
}

func (f *fakePostStore) ListByAuthor(_ context.Context, authorID string, pageNum, limit int, status string) ([]models.Post, int64, error) {
	all := f.matching(func(p *models.Post) bool {
		if p.Author != authorID {
			return false
		}
		if status != "" && status != "all" && p.Status != status {
			return false
		}
		return true
	})
	return window(all, pageNum, limit, false), int64(len(all)), nil
}

func (f *fakePostStore) Get(_ context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, errPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostStore) GetAndIncrementViews(_ context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, errPostNotFound
	}
	p.Views++
	cp := *p
	return &cp, nil
}

func (f *fakePostStore) Update(_ context.Context, id string, upd models.PostUpdate) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, errPostNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Tags != nil {
		p.Tags = *upd.Tags
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.Featured != nil {
		p.Featured = *upd.Featured
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (f *fakePostStore) Delete(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return errPostNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostStore) DeleteByAuthor(_ context.Context, authorID string) error {
	for id, p := range f.posts {
		if p.Author == authorID {
			delete(f.posts, id)
		}
	}
	return nil
}

func (f *fakePostStore) ToggleLike(_ context.Context, id, userID string) (int, bool, error) {
	p, ok := f.posts[id]
	if !ok {
		return 0, false, errPostNotFound
	}
	for i, uid := range p.Likes {
		if uid == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return len(p.Likes), false, nil
		}
	}
	p.Likes = append(p.Likes, userID)
	return len(p.Likes), true, nil
}

func (f *fakePostStore) AddComment(_ context.Context, id string, comment models.Comment) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, errPostNotFound
	}
	p.Comments = append(p.Comments, comment)
	cp := *p
	return &cp, nil
}

func (f *fakePostStore) PopularTags(_ context.Context, limit int) ([]models.TagCount, error) {
	counts := map[string]int64{}
	for _, p := range f.posts {
		if p.Status != models.StatusPublished {
			continue
		}
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	out := make([]models.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, models.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

// ---------------------------------------------------------------------------
// fixture: full router with auth middleware, like the real server mounts it
// ---------------------------------------------------------------------------

type fixture struct {
	router http.Handler
	store  *fakePostStore
	users  *fakeUsers
	tokens *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", false)
	require.NoError(t, err)

	store := newFakePostStore()
	users := &fakeUsers{users: map[string]*models.User{}}
	h := NewHandler(store, users, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/tags/popular", h.PopularTags)
		r.Get("/{id}", h.Get)
		r.With(middleware.RequireAuth(tokens)).Get("/my", h.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/like", h.ToggleLike)
			r.Post("/{id}/comments", h.AddComment)
		})
	})

	return &fixture{router: r, store: store, users: users, tokens: tokens}
}

func (fx *fixture) addUser(t *testing.T, id, name string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: id + "@x.com", Name: name, Provider: models.ProviderLocal}
	fx.users.users[id] = u
	return u
}

func (fx *fixture) do(t *testing.T, method, target string, body any, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := fx.tokens.Issue(as)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Posts      []models.Post     `json:"posts"`
	Pagination models.Pagination `json:"pagination"`
}

func (fx *fixture) createPost(t *testing.T, as *models.User, req models.CreatePostRequest) models.Post {
	t.Helper()
	w := fx.do(t, http.MethodPost, "/api/posts", req, as)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Post
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestCreatePost(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		fx := newFixture(t)
		w := fx.do(t, http.MethodPost, "/api/posts", models.CreatePostRequest{Title: "T", Content: "C"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("defaults to draft and snapshots author name", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C"})

		assert.Equal(t, models.StatusDraft, post.Status)
		assert.Equal(t, "u1", post.Author)
		assert.Equal(t, "Ann", post.AuthorName)
		assert.False(t, post.Featured)
		assert.NotNil(t, post.Tags)
	})

	t.Run("validation failures", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		tests := []struct {
			name string
			req  models.CreatePostRequest
		}{
			{"empty title", models.CreatePostRequest{Content: "C"}},
			{"empty content", models.CreatePostRequest{Title: "T"}},
			{"whitespace title", models.CreatePostRequest{Title: "   ", Content: "C"}},
			{"bad status", models.CreatePostRequest{Title: "T", Content: "C", Status: "bogus"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := fx.do(t, http.MethodPost, "/api/posts", tt.req, ann)
				assert.Equal(t, http.StatusBadRequest, w.Code)
			})
		}
	})

	t.Run("author name snapshot is not retroactive", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		old := fx.createPost(t, ann, models.CreatePostRequest{Title: "Old", Content: "C"})

		ann.Name = "Anna" // renamed after publishing
		fresh := fx.createPost(t, ann, models.CreatePostRequest{Title: "New", Content: "C"})

		assert.Equal(t, "Ann", old.AuthorName)
		assert.Equal(t, "Anna", fresh.AuthorName)
		stored, err := fx.store.Get(context.Background(), old.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Ann", stored.AuthorName)
	})
}

func TestListPublished(t *testing.T) {
	t.Run("excludes drafts until published, then omits content", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C"})

		w := fx.do(t, http.MethodGet, "/api/posts", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Posts)

		status := models.StatusPublished
		upd := fx.do(t, http.MethodPut, "/api/posts/"+post.ID.Hex(), models.UpdatePostRequest{Status: &status}, ann)
		require.Equal(t, http.StatusOK, upd.Code)

		w = fx.do(t, http.MethodGet, "/api/posts", nil, nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Posts, 1)
		assert.Equal(t, "T", resp.Posts[0].Title)
		assert.Empty(t, resp.Posts[0].Content)
	})

	t.Run("pagination windows and totals", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		for i := 0; i < 25; i++ {
			fx.createPost(t, ann, models.CreatePostRequest{
				Title: fmt.Sprintf("Post %d", i), Content: "C", Status: models.StatusPublished,
			})
		}

		var got int
		for pageNum := 1; pageNum <= 3; pageNum++ {
			w := fx.do(t, http.MethodGet, fmt.Sprintf("/api/posts?page=%d&limit=10", pageNum), nil, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var resp listResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, int64(25), resp.Pagination.Total)
			assert.Equal(t, 3, resp.Pagination.Pages)
			got += len(resp.Posts)
		}
		assert.Equal(t, 25, got)

		// Beyond the last page: empty list, not an error.
		w := fx.do(t, http.MethodGet, "/api/posts?page=4&limit=10", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Posts)
	})

	t.Run("newest first", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		fx.createPost(t, ann, models.CreatePostRequest{Title: "first", Content: "C", Status: models.StatusPublished})
		fx.createPost(t, ann, models.CreatePostRequest{Title: "second", Content: "C", Status: models.StatusPublished})

		w := fx.do(t, http.MethodGet, "/api/posts", nil, nil)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Posts, 2)
		assert.Equal(t, "second", resp.Posts[0].Title)
		assert.Equal(t, "first", resp.Posts[1].Title)
	})

	t.Run("search and tag filters combine", func(t *testing.T) {
		fx := newFixture(t)
		ann := fx.addUser(t, "u1", "Ann")
		fx.createPost(t, ann, models.CreatePostRequest{Title: "go concurrency", Content: "C", Tags: []string{"go"}, Status: models.StatusPublished})
		fx.createPost(t, ann, models.CreatePostRequest{Title: "go generics", Content: "C", Tags: []string{"types"}, Status: models.StatusPublished})
		fx.createPost(t, ann, models.CreatePostRequest{Title: "rust ownership", Content: "C", Tags: []string{"go"}, Status: models.StatusPublished})

		w := fx.do(t, http.MethodGet, "/api/posts?search=go&tag=go", nil, nil)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Posts, 1)
		assert.Equal(t, "go concurrency", resp.Posts[0].Title)
	})
}

func TestListMine(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	bob := fx.addUser(t, "u2", "Bob")
	fx.createPost(t, ann, models.CreatePostRequest{Title: "draft", Content: "Full text", Status: models.StatusDraft})
	fx.createPost(t, ann, models.CreatePostRequest{Title: "live", Content: "Full text", Status: models.StatusPublished})
	fx.createPost(t, bob, models.CreatePostRequest{Title: "other", Content: "C", Status: models.StatusPublished})

	t.Run("requires authentication", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/my", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns own posts with full content", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/my", nil, ann)
		require.Equal(t, http.StatusOK, w.Code)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Posts, 2)
		for _, p := range resp.Posts {
			assert.Equal(t, "u1", p.Author)
			assert.Equal(t, "Full text", p.Content)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/my?status=draft", nil, ann)
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Posts, 1)
		assert.Equal(t, "draft", resp.Posts[0].Title)
	})

	t.Run("unknown status filter rejected", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/my?status=bogus", nil, ann)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetPost(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C", Status: models.StatusPublished})

	t.Run("increments views once per read", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			w := fx.do(t, http.MethodGet, "/api/posts/"+post.ID.Hex(), nil, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var resp struct {
				Post postDetail `json:"post"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, want, resp.Post.Views)
		}
	})

	t.Run("includes author projection", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/"+post.ID.Hex(), nil, nil)
		var resp struct {
			Post struct {
				Author models.PublicUser `json:"author"`
			} `json:"post"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "u1", resp.Post.Author.ID)
		assert.Equal(t, "Ann", resp.Post.Author.Name)
	})

	t.Run("missing post", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/posts/"+primitive.NewObjectID().Hex(), nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOwnerGating(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	bob := fx.addUser(t, "u2", "Bob")
	post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C"})
	title := "Hacked"

	tests := []struct {
		name   string
		method string
		target string
		body   any
		as     *models.User
		want   int
	}{
		{"update unauthenticated", http.MethodPut, "/api/posts/" + post.ID.Hex(), models.UpdatePostRequest{Title: &title}, nil, http.StatusUnauthorized},
		{"update by non-owner", http.MethodPut, "/api/posts/" + post.ID.Hex(), models.UpdatePostRequest{Title: &title}, bob, http.StatusForbidden},
		{"delete unauthenticated", http.MethodDelete, "/api/posts/" + post.ID.Hex(), nil, nil, http.StatusUnauthorized},
		{"delete by non-owner", http.MethodDelete, "/api/posts/" + post.ID.Hex(), nil, bob, http.StatusForbidden},
		{"update missing post", http.MethodPut, "/api/posts/" + primitive.NewObjectID().Hex(), models.UpdatePostRequest{Title: &title}, bob, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(t, tt.method, tt.target, tt.body, tt.as)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("owner can update and delete", func(t *testing.T) {
		w := fx.do(t, http.MethodPut, "/api/posts/"+post.ID.Hex(), models.UpdatePostRequest{Title: &title}, ann)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Post models.Post `json:"post"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Hacked", resp.Post.Title)
		assert.Equal(t, "C", resp.Post.Content) // untouched fields survive

		w = fx.do(t, http.MethodDelete, "/api/posts/"+post.ID.Hex(), nil, ann)
		require.Equal(t, http.StatusOK, w.Code)
		w = fx.do(t, http.MethodGet, "/api/posts/"+post.ID.Hex(), nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestToggleLike(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	bob := fx.addUser(t, "u2", "Bob")
	post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C", Status: models.StatusPublished})

	like := func(as *models.User) models.LikeResponse {
		w := fx.do(t, http.MethodPost, "/api/posts/"+post.ID.Hex()+"/like", nil, as)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.LikeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	t.Run("requires authentication", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/posts/"+post.ID.Hex()+"/like", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("paired toggles return to the original count", func(t *testing.T) {
		first := like(bob)
		assert.Equal(t, models.LikeResponse{LikesCount: 1, IsLiked: true}, first)

		second := like(bob)
		assert.Equal(t, models.LikeResponse{LikesCount: 0, IsLiked: false}, second)
	})

	t.Run("author may like their own post", func(t *testing.T) {
		resp := like(ann)
		assert.True(t, resp.IsLiked)
		assert.Equal(t, 1, resp.LikesCount)
	})

	t.Run("counts are per user", func(t *testing.T) {
		resp := like(bob) // ann already likes from the previous subtest
		assert.Equal(t, 2, resp.LikesCount)
	})
}

func TestAddComment(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	bob := fx.addUser(t, "u2", "Bob")
	post := fx.createPost(t, ann, models.CreatePostRequest{Title: "T", Content: "C", Status: models.StatusPublished})

	t.Run("rejects blank content", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/posts/"+post.ID.Hex()+"/comments", models.AddCommentRequest{Content: "   "}, bob)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("appends with commenter name snapshot", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/posts/"+post.ID.Hex()+"/comments", models.AddCommentRequest{Content: " Nice post "}, bob)
		require.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Post models.Post `json:"post"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Post.Comments, 1)
		c := resp.Post.Comments[0]
		assert.Equal(t, "u2", c.Author)
		assert.Equal(t, "Bob", c.AuthorName)
		assert.Equal(t, "Nice post", c.Content)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("missing post", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/posts/"+primitive.NewObjectID().Hex()+"/comments", models.AddCommentRequest{Content: "hi"}, bob)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPopularTags(t *testing.T) {
	fx := newFixture(t)
	ann := fx.addUser(t, "u1", "Ann")
	fx.createPost(t, ann, models.CreatePostRequest{Title: "1", Content: "C", Tags: []string{"go", "web"}, Status: models.StatusPublished})
	fx.createPost(t, ann, models.CreatePostRequest{Title: "2", Content: "C", Tags: []string{"go"}, Status: models.StatusPublished})
	fx.createPost(t, ann, models.CreatePostRequest{Title: "3", Content: "C", Tags: []string{"api", "web"}, Status: models.StatusPublished})
	// Draft tags must not count.
	fx.createPost(t, ann, models.CreatePostRequest{Title: "4", Content: "C", Tags: []string{"secret"}, Status: models.StatusDraft})

	w := fx.do(t, http.MethodGet, "/api/posts/tags/popular", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tags []models.TagCount `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Tags, 3)
	assert.Equal(t, models.TagCount{Tag: "go", Count: 2}, resp.Tags[0])
	// Equal counts tie-break on the tag string.
	assert.Equal(t, models.TagCount{Tag: "web", Count: 2}, resp.Tags[1])
	assert.Equal(t, models.TagCount{Tag: "api", Count: 1}, resp.Tags[2])
}
