package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/models"
)

var errPostNotFound = apierr.NotFound("Post not found")

// MongoStore handles post document CRUD in MongoDB. All mutations are
// single-document atomic updates, so concurrent likes, comments, and view
// increments on the same post cannot lose writes.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("posts")}
}

// EnsureIndexes creates the text and listing indexes used by the queries below.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "content", Value: "text"},
			{Key: "tags", Value: "text"},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	return nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never name a post.
		return primitive.NilObjectID, errPostNotFound
	}
	return oid, nil
}

// Create inserts a new post document and returns it with its generated id.
func (s *MongoStore) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.Views = 0
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Likes = []string{}
	post.Comments = []models.Comment{}

	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	post.ID = res.InsertedID.(primitive.ObjectID)
	return post, nil
}

// ListPublished returns one page of published posts, newest first, with the
// full content field projected away. search uses the text index; tag filters
// to posts whose tag list contains it exactly. Both combine as a logical AND.
func (s *MongoStore) ListPublished(ctx context.Context, page, limit int, search, tag string) ([]models.Post, int64, error) {
	filter := bson.M{"status": models.StatusPublished}
	if search != "" {
		filter["$text"] = bson.M{"$search": search}
	}
	if tag != "" {
		filter["tags"] = tag
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"content": 0})

	return s.list(ctx, filter, opts)
}

// ListByAuthor returns one page of a single author's posts, newest first,
// optionally filtered by status, with full content included.
func (s *MongoStore) ListByAuthor(ctx context.Context, authorID string, page, limit int, status string) ([]models.Post, int64, error) {
	filter := bson.M{"author": authorID}
	if status != "" && status != "all" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	return s.list(ctx, filter, opts)
}

func (s *MongoStore) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, int64, error) {
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find posts: %w", err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

// Get returns the post without side effects.
func (s *MongoStore) Get(ctx context.Context, id string) (*models.Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

// GetAndIncrementViews returns the post after atomically incrementing its
// view counter by one. Concurrent calls each count.
func (s *MongoStore) GetAndIncrementViews(ctx context.Context, id string) (*models.Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var post models.Post
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("increment views: %w", err)
	}
	return &post, nil
}

// Update applies the non-nil fields of upd and bumps updated_at, returning
// the updated post. Ownership is checked by the caller.
func (s *MongoStore) Update(ctx context.Context, id string, upd models.PostUpdate) (*models.Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Featured != nil {
		set["featured"] = *upd.Featured
	}

	var post models.Post
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

// Delete removes the post permanently.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return errPostNotFound
	}
	return nil
}

// DeleteByAuthor removes every post authored by the given user. Used when
// the owning account is deleted.
func (s *MongoStore) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"author": authorID}); err != nil {
		return fmt.Errorf("delete posts by author: %w", err)
	}
	return nil
}

// ToggleLike removes userID from the likes list when present, otherwise adds
// it. Each step is a document-atomic update; $addToSet keeps the list free of
// duplicates under concurrent toggles. Returns the new count and membership.
func (s *MongoStore) ToggleLike(ctx context.Context, id, userID string) (int, bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, false, err
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return 0, false, fmt.Errorf("unlike post: %w", err)
	}

	liked := false
	if res.MatchedCount == 0 {
		// Not currently liked (or missing); try to add.
		add, err := s.col.UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$addToSet": bson.M{"likes": userID}},
		)
		if err != nil {
			return 0, false, fmt.Errorf("like post: %w", err)
		}
		if add.MatchedCount == 0 {
			return 0, false, errPostNotFound
		}
		liked = true
	}

	var post models.Post
	opts := options.FindOne().SetProjection(bson.M{"likes": 1})
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, errPostNotFound
		}
		return 0, false, fmt.Errorf("count likes: %w", err)
	}
	return post.LikesCount(), liked, nil
}

// AddComment appends the comment and returns the updated post.
func (s *MongoStore) AddComment(ctx context.Context, id string, comment models.Comment) (*models.Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var post models.Post
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$push": bson.M{"comments": comment},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &post, nil
}

// PopularTags aggregates tag frequency across published posts, most used
// first. Ties are broken by tag string so the ordering is deterministic.
func (s *MongoStore) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusPublished}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate tags: %w", err)
	}
	defer cur.Close(ctx)

	tags := []models.TagCount{}
	if err := cur.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}
