package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"postsapi/app/models"
	"postsapi/app/repositories"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostRepository is an in-memory repositories.PostRepository for tests.
// Stored posts are copied on the way in and out.
type PostRepository struct {
	posts map[primitive.ObjectID]*models.Post
	err   error
	mutex sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts: make(map[primitive.ObjectID]*models.Post),
	}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[primitive.ObjectID]*models.Post)
	m.err = nil
}

// FailWith makes every subsequent call return err until Clear is called.
func (m *PostRepository) FailWith(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.err = err
}

func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return m.err
	}

	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	if _, exists := m.posts[post.ID]; exists {
		return errors.WithStack(repositories.ErrDuplicateKey)
	}
	post.BeforeCreate(time.Now())
	if err := post.Validate(); err != nil {
		return err
	}
	m.posts[post.ID] = post.Clone()
	return nil
}

func (m *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := m.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, err
	}
	if !repositories.Visible(post) {
		return nil, errors.WithStack(repositories.ErrNotFound)
	}
	return post, nil
}

func (m *PostRepository) FindByIDUnscoped(ctx context.Context, id string) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	post, exists := m.posts[oid]
	if !exists {
		return nil, errors.WithStack(repositories.ErrNotFound)
	}
	return post.Clone(), nil
}

func (m *PostRepository) Find(ctx context.Context, q repositories.Query) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	matched := m.matching(q.Search)
	if q.Skip >= len(matched) {
		return []*models.Post{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Skip+q.Limit < end {
		end = q.Skip + q.Limit
	}
	return matched[q.Skip:end], nil
}

func (m *PostRepository) Count(ctx context.Context, q repositories.Query) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.matching(q.Search))), nil
}

func (m *PostRepository) Update(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error) {
	update.Normalize()
	return m.mutate(id, func(post *models.Post) error {
		update.ApplyTo(post, time.Now())
		return post.Validate()
	})
}

func (m *PostRepository) SoftDelete(ctx context.Context, id string) (*models.Post, error) {
	return m.mutate(id, func(post *models.Post) error {
		post.MarkDeleted(time.Now())
		return nil
	})
}

func (m *PostRepository) Close() error {
	return nil
}

func (m *PostRepository) mutate(id string, fn func(post *models.Post) error) (*models.Post, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	stored, exists := m.posts[oid]
	if !exists || !repositories.Visible(stored) {
		return nil, errors.WithStack(repositories.ErrNotFound)
	}
	post := stored.Clone()
	if err := fn(post); err != nil {
		return nil, err
	}
	m.posts[oid] = post.Clone()
	return post, nil
}

// matching returns copies of the live posts matching search, newest first.
func (m *PostRepository) matching(search string) []*models.Post {
	var posts []*models.Post
	for _, post := range m.posts {
		if repositories.Visible(post) && repositories.Matches(post, search) {
			posts = append(posts, post.Clone())
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
