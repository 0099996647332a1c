package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidStatus reports whether s is a known post status.
func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// Comment is an embedded, append-only comment on a post. Comments carry a
// denormalized snapshot of the commenter's name at write time.
type Comment struct {
	Author     string    `json:"author"     bson:"author"`
	AuthorName string    `json:"authorName" bson:"author_name"`
	Content    string    `json:"content"    bson:"content"`
	CreatedAt  time.Time `json:"createdAt"  bson:"created_at"`
}

// Post is a single blog post stored as a MongoDB document. Likes and
// comments are embedded so engagement updates stay document-atomic.
type Post struct {
	ID         primitive.ObjectID `json:"id"                bson:"_id,omitempty"`
	Title      string             `json:"title"             bson:"title"`
	Content    string             `json:"content,omitempty" bson:"content"`
	Author     string             `json:"author"            bson:"author"`
	AuthorName string             `json:"authorName"        bson:"author_name"`
	Tags       []string           `json:"tags"              bson:"tags"`
	Status     string             `json:"status"            bson:"status"`
	Featured   bool               `json:"featured"          bson:"featured"`
	Views      int64              `json:"views"             bson:"views"`
	Likes      []string           `json:"likes"             bson:"likes"`
	Comments   []Comment          `json:"comments"          bson:"comments"`
	CreatedAt  time.Time          `json:"createdAt"         bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt"         bson:"updated_at"`
}

// LikesCount returns the number of users who like the post.
func (p *Post) LikesCount() int { return len(p.Likes) }

// IsLikedBy reports whether the given user currently likes the post.
func (p *Post) IsLikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// PostUpdate carries a partial post mutation; nil fields are left unchanged.
type PostUpdate struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Status   *string
	Featured *bool
}

// TagCount is one row of the popular-tags aggregation.
type TagCount struct {
	Tag   string `json:"tag"   bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// Pagination describes one page window of a listing response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page metadata for a listing.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// CreatePostRequest is the JSON body for POST /api/posts.
type CreatePostRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
	Featured bool     `json:"featured"`
}

// UpdatePostRequest is the JSON body for PUT /api/posts/{id}.
// Absent fields leave the stored value untouched.
type UpdatePostRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Tags     *[]string `json:"tags"`
	Status   *string   `json:"status"`
	Featured *bool     `json:"featured"`
}

// AddCommentRequest is the JSON body for POST /api/posts/{id}/comments.
type AddCommentRequest struct {
	Content string `json:"content"`
}

// LikeResponse is the result of a like toggle.
type LikeResponse struct {
	LikesCount int  `json:"likesCount"`
	IsLiked    bool `json:"isLiked"`
}
