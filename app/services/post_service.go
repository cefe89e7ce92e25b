package services

import (
	"context"
	"math"
	"strconv"
	"strings"
	"unicode"

	"postsapi/app/models"
	"postsapi/app/repositories"

	"github.com/pkg/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int.
	MaxPage = math.MaxInt32
)

// ErrPostNotFound is returned when a post does not exist or was soft-deleted.
var ErrPostNotFound = errors.New("post not found")

// ListParams carries the raw query string values of a list request.
type ListParams struct {
	Search string
	Page   string
	Limit  string
}

// Pagination describes one page of a list result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	TotalDocs  int64 `json:"totalDocs"`
}

// PostList is one page of live posts, newest first.
type PostList struct {
	Posts      []*models.Post
	Pagination Pagination
}

// PostService handles business logic for blog posts
type PostService struct {
	postRepo repositories.PostRepository
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
	}
}

// CreatePost stores a new post. The repository assigns the id and
// timestamps and re-validates the record.
func (s *PostService) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetAllPosts returns a page of live posts matching params.Search.
func (s *PostService) GetAllPosts(ctx context.Context, params ListParams) (*PostList, error) {
	page := normalizePage(params.Page)
	limit := normalizeLimit(params.Limit)
	q := repositories.Query{
		Search: params.Search,
		Skip:   (page - 1) * limit,
		Limit:  limit,
	}

	posts, err := s.postRepo.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.postRepo.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	return &PostList{
		Posts: posts,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
			TotalDocs:  total,
		},
	}, nil
}

// GetPostByID retrieves a live post by ID
func (s *PostService) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	return post, translate(err)
}

// UpdatePost replaces the fields carried by a full update payload.
func (s *PostService) UpdatePost(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error) {
	post, err := s.postRepo.Update(ctx, id, update)
	return post, translate(err)
}

// PartialUpdatePost merges the supplied fields into the post.
func (s *PostService) PartialUpdatePost(ctx context.Context, id string, update *models.PostUpdate) (*models.Post, error) {
	post, err := s.postRepo.Update(ctx, id, update)
	return post, translate(err)
}

// DeletePost soft-deletes a post and returns the deleted record.
func (s *PostService) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.postRepo.SoftDelete(ctx, id)
	return post, translate(err)
}

func translate(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.WithStack(ErrPostNotFound)
	}
	return err
}

func normalizePage(raw string) int {
	page, ok := leadingInt(raw)
	if !ok {
		return DefaultPage
	}
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

func normalizeLimit(raw string) int {
	limit, ok := leadingInt(raw)
	if !ok {
		return DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// leadingInt parses the optionally signed integer prefix of s, so "2abc"
// gives 2 and "3.9" gives 3.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// out of range
		if s[0] == '-' {
			return math.MinInt32, true
		}
		return math.MaxInt32, true
	}
	return n, true
}
