package repositories

import (
	"context"
	"regexp"
	"time"

	"postsapi/app/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostCollection is the MongoDB collection holding posts.
const PostCollection = "posts"

// MongoPostRepository implements PostRepository on a MongoDB collection.
type MongoPostRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// ConnectMongo connects to uri, verifies the connection and returns a
// repository bound to the posts collection of database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoPostRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}
	return NewMongoPostRepository(client, client.Database(database).Collection(PostCollection)), nil
}

// NewMongoPostRepository wraps an existing collection.
func NewMongoPostRepository(client *mongo.Client, coll *mongo.Collection) *MongoPostRepository {
	return &MongoPostRepository{client: client, coll: coll, now: mongoNow}
}

// mongoNow matches the millisecond precision of BSON dates so returned
// timestamps equal what a later read decodes.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// EnsureIndexes creates the soft-delete, createdAt and text indexes.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, postIndexes())
	return errors.Wrap(err, "create post indexes")
}

// Create assigns an id and timestamps, validates and inserts the post.
func (r *MongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	post.BeforeCreate(r.now())
	if err := post.Validate(); err != nil {
		return err
	}

	_, err := r.coll.InsertOne(ctx, post)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(ErrDuplicateKey, err.Error())
	}
	return errors.Wrap(err, "insert post")
}

// FindByID retrieves a live post by ID
func (r *MongoPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, liveFilter(bson.M{"_id": oid}))
}

// FindByIDUnscoped retrieves a post by ID even if it was soft-deleted.
func (r *MongoPostRepository) FindByIDUnscoped(ctx context.Context, id string) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// Find lists live posts matching q, newest first.
func (r *MongoPostRepository) Find(ctx context.Context, q Query) ([]*models.Post, error) {
	cursor, err := r.coll.Find(ctx, searchFilter(q.Search), findOptions(q))
	if err != nil {
		return nil, errors.Wrap(err, "find posts")
	}

	posts := []*models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode posts")
	}
	for _, post := range posts {
		ensureTags(post)
	}
	return posts, nil
}

// Count returns how many live posts match q, ignoring Skip and Limit.
func (r *MongoPostRepository) Count(ctx context.Context, q Query) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, searchFilter(q.Search))
	return total, errors.Wrap(err, "count posts")
}

// Update applies update to a live post and returns the stored result.
func (r *MongoPostRepository) Update(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	update.Normalize()
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, oid, updateDocument(update, r.now()))
}

// SoftDelete flags a live post as deleted and returns it.
func (r *MongoPostRepository) SoftDelete(ctx context.Context, id string) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, oid, softDeleteDocument(r.now()))
}

// Close disconnects the client.
func (r *MongoPostRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoPostRepository) findOne(ctx context.Context, filter bson.M) (*models.Post, error) {
	var post models.Post
	err := r.coll.FindOne(ctx, filter).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find post")
	}
	ensureTags(&post)
	return &post, nil
}

func (r *MongoPostRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, doc bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var post models.Post
	err := r.coll.FindOneAndUpdate(ctx, liveFilter(bson.M{"_id": id}), doc, opts).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "update post")
	}
	ensureTags(&post)
	return &post, nil
}

// liveFilter scopes a filter to posts that have not been soft-deleted.
func liveFilter(filter bson.M) bson.M {
	filter["isDeleted"] = false
	return filter
}

func searchFilter(search string) bson.M {
	filter := bson.M{}
	if search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		}
	}
	return liveFilter(filter)
}

func findOptions(q Query) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return opts
}

func updateDocument(update *models.PostUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Author != nil {
		set["author"] = *update.Author
	}
	if update.Tags != nil {
		set["tags"] = *update.Tags
	}
	return bson.M{"$set": set}
}

func softDeleteDocument(now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"isDeleted": true,
		"deletedAt": now,
		"updatedAt": now,
	}}
}

func postIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "isDeleted", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
	}
}

func ensureTags(post *models.Post) {
	if post.Tags == nil {
		post.Tags = []string{}
	}
}
