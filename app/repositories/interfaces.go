package repositories

import (
	"context"

	"postsapi/app/models"
)

// Query selects live posts for listing. An empty Search matches every post.
type Query struct {
	Search string
	Skip   int
	Limit  int
}

// PostRepository defines the interface for post data access.
//
// Every method except FindByIDUnscoped only sees posts that have not been
// soft-deleted; a deleted post behaves exactly like a missing one.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindByIDUnscoped(ctx context.Context, id string) (*models.Post, error)
	Find(ctx context.Context, q Query) ([]*models.Post, error)
	Count(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error)
	SoftDelete(ctx context.Context, id string) (*models.Post, error)
	Close() error
}
