package repositories

import (
	"context"
	"time"

	"postsapi/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BadgerPostRepository implements PostRepository using BadgerDB.
// Each post is one JSON document under post:<id>, with a derived
// createdAt index used for newest-first listing.
type BadgerPostRepository struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db, now: time.Now}
}

// Create assigns an id and timestamps, validates and inserts the post.
func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	post.BeforeCreate(r.now())
	if err := post.Validate(); err != nil {
		return err
	}

	data, err := marshalEntity(post)
	if err != nil {
		return errors.WithStack(err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(post.ID)
		_, err := txn.Get(key)
		if err == nil {
			return errors.WithStack(ErrDuplicateKey)
		}
		if err != badger.ErrKeyNotFound {
			return errors.Wrap(err, "check existing post")
		}

		if err := txn.Set(key, data); err != nil {
			return errors.Wrap(err, "save post")
		}
		return errors.Wrap(txn.Set(createdIndexKey(post), key), "save post index")
	})
}

// FindByID retrieves a live post by ID
func (r *BadgerPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Visible(post) {
		return nil, errors.WithStack(ErrNotFound)
	}
	return post, nil
}

// FindByIDUnscoped retrieves a post by ID even if it was soft-deleted.
func (r *BadgerPostRepository) FindByIDUnscoped(ctx context.Context, id string) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = r.db.View(func(txn *badger.Txn) error {
		post, err = getPost(txn, oid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Find lists live posts matching q, newest first.
func (r *BadgerPostRepository) Find(ctx context.Context, q Query) ([]*models.Post, error) {
	posts := []*models.Post{}
	matched := 0
	err := r.scan(q.Search, func(post *models.Post) bool {
		matched++
		if matched <= q.Skip {
			return true
		}
		posts = append(posts, post)
		return q.Limit <= 0 || len(posts) < q.Limit
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns how many live posts match q, ignoring Skip and Limit.
func (r *BadgerPostRepository) Count(ctx context.Context, q Query) (int64, error) {
	var total int64
	err := r.scan(q.Search, func(*models.Post) bool {
		total++
		return true
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Update merges update into a live post and returns the stored result.
func (r *BadgerPostRepository) Update(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error) {
	update.Normalize()
	return r.mutate(id, func(post *models.Post) error {
		update.ApplyTo(post, r.now())
		return post.Validate()
	})
}

// SoftDelete flags a live post as deleted and returns it.
func (r *BadgerPostRepository) SoftDelete(ctx context.Context, id string) (*models.Post, error) {
	return r.mutate(id, func(post *models.Post) error {
		post.MarkDeleted(r.now())
		return nil
	})
}

// Close closes the underlying database.
func (r *BadgerPostRepository) Close() error {
	return r.db.Close()
}

// mutate loads a live post, applies fn and writes it back in one transaction.
func (r *BadgerPostRepository) mutate(id string, fn func(post *models.Post) error) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = r.db.Update(func(txn *badger.Txn) error {
		post, err = getPost(txn, oid)
		if err != nil {
			return err
		}
		if !Visible(post) {
			return errors.WithStack(ErrNotFound)
		}
		if err := fn(post); err != nil {
			return err
		}

		data, err := marshalEntity(post)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.Wrap(txn.Set(postKey(oid), data), "save post")
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// scan walks the createdAt index and calls fn for every live post matching
// search until fn returns false.
func (r *BadgerPostRepository) scan(search string, fn func(post *models.Post) bool) error {
	return r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostCreatedIndexPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key, err := it.Item().ValueCopy(nil)
			if err != nil {
				return errors.Wrap(err, "read post index")
			}

			item, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return errors.Wrap(err, "get post")
			}

			var post models.Post
			if err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			}); err != nil {
				return errors.WithStack(err)
			}

			if !Visible(&post) || !Matches(&post, search) {
				continue
			}
			if !fn(&post) {
				return nil
			}
		}
		return nil
	})
}

func getPost(txn *badger.Txn, id primitive.ObjectID) (*models.Post, error) {
	item, err := txn.Get(postKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get post")
	}

	var post models.Post
	if err := item.Value(func(val []byte) error {
		return unmarshalEntity(val, &post)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &post, nil
}
