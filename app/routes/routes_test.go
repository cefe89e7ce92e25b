package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"postsapi/app/config"
	"postsapi/app/middleware"
	"postsapi/app/models"
	"postsapi/app/repositories"
	"postsapi/app/repositories/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type envelope struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error"`
	Details    []models.Violation `json:"details"`
	Stack      string             `json:"stack"`
	Count      int                `json:"count"`
	Pagination struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalPages int   `json:"totalPages"`
		TotalDocs  int64 `json:"totalDocs"`
	} `json:"pagination"`
	Data json.RawMessage `json:"data"`
}

func (e envelope) post(t *testing.T) models.Post {
	var post models.Post
	require.NoError(t, json.Unmarshal(e.Data, &post))
	return post
}

func (e envelope) posts(t *testing.T) []models.Post {
	var posts []models.Post
	require.NoError(t, json.Unmarshal(e.Data, &posts))
	return posts
}

func setupTestRepository(t *testing.T) repositories.PostRepository {
	db, err := repositories.OpenBadger("", true)
	require.NoError(t, err)
	repo := repositories.NewBadgerPostRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func setupTestRouter(t *testing.T, repo repositories.PostRepository) http.Handler {
	cfg := config.Default()
	return NewHandler(repo, cfg, zap.NewNop())
}

func request(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var res envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	}
	return w, res
}

func createPost(t *testing.T, router http.Handler, title string) models.Post {
	body := fmt.Sprintf(`{"title":%q,"content":"Content written for %s","author":"Route Tester"}`, title, title)
	w, res := request(t, router, http.MethodPost, "/api/v1/posts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return res.post(t)
}

func TestAPIRoutes(t *testing.T) {
	router := setupTestRouter(t, setupTestRepository(t))

	t.Run("POST with three violations", func(t *testing.T) {
		w, res := request(t, router, http.MethodPost, "/api/v1/posts", `{"title":"Hi","content":"short","author":"A"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, res.Success)
		assert.Equal(t, "Validation failed", res.Error)
		require.Len(t, res.Details, 3)
		assert.Equal(t, "title", res.Details[0].Field)
		assert.Equal(t, "content", res.Details[1].Field)
		assert.Equal(t, "author", res.Details[2].Field)
	})

	t.Run("POST missing title and author reports both", func(t *testing.T) {
		w, res := request(t, router, http.MethodPost, "/api/v1/posts", `{"content":"This is valid content."}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := []string{}
		for _, d := range res.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"title", "author"}, fields)
	})

	t.Run("POST valid post", func(t *testing.T) {
		w, res := request(t, router, http.MethodPost, "/api/v1/posts",
			`{"title":"My First Post","content":"This is valid content.","author":"Jane Doe"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.True(t, res.Success)
		post := res.post(t)
		assert.Equal(t, []string{}, post.Tags)
		assert.False(t, post.IsDeleted)
		assert.True(t, post.CreatedAt.Equal(post.UpdatedAt))
		assert.Contains(t, string(res.Data), `"tags":[]`)
		assert.Contains(t, string(res.Data), `"isDeleted":false`)
	})

	t.Run("GET nonexistent post", func(t *testing.T) {
		w, res := request(t, router, http.MethodGet, "/api/v1/posts/"+models.NewID().Hex(), "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, res.Success)
		assert.Equal(t, "Post not found", res.Error)
		assert.Empty(t, res.Stack)
	})

	t.Run("GET malformed id", func(t *testing.T) {
		w, res := request(t, router, http.MethodGet, "/api/v1/posts/12345", "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid ID format", res.Error)
	})

	t.Run("soft-deleted post disappears from search", func(t *testing.T) {
		post := createPost(t, router, "Ephemeral Announcement")

		w, res := request(t, router, http.MethodGet, "/api/v1/posts?search="+url.QueryEscape("Ephemeral Announcement"), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), res.Pagination.TotalDocs)

		w, _ = request(t, router, http.MethodDelete, "/api/v1/posts/"+post.ID.Hex(), "")
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Empty(t, w.Header().Get("Content-Type"))

		w, res = request(t, router, http.MethodGet, "/api/v1/posts?search="+url.QueryEscape("Ephemeral Announcement"), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, res.posts(t))
		assert.Equal(t, 0, res.Count)
		assert.Equal(t, int64(0), res.Pagination.TotalDocs)
		assert.Equal(t, 0, res.Pagination.TotalPages)

		w, _ = request(t, router, http.MethodGet, "/api/v1/posts/"+post.ID.Hex(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PATCH with eleven tags leaves the record unchanged", func(t *testing.T) {
		post := createPost(t, router, "Tagged Post")
		w, _ := request(t, router, http.MethodPatch, "/api/v1/posts/"+post.ID.Hex(), `{"tags":["keep"]}`)
		require.Equal(t, http.StatusOK, w.Code)

		tags := make([]string, 11)
		for i := range tags {
			tags[i] = fmt.Sprintf("t%d", i)
		}
		body, err := json.Marshal(map[string]interface{}{"tags": tags})
		require.NoError(t, err)

		w, res := request(t, router, http.MethodPatch, "/api/v1/posts/"+post.ID.Hex(), string(body))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, res.Details, 1)
		assert.Equal(t, "tags", res.Details[0].Field)

		w, res = request(t, router, http.MethodGet, "/api/v1/posts/"+post.ID.Hex(), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"keep"}, res.post(t).Tags)
	})

	t.Run("PATCH twice is idempotent", func(t *testing.T) {
		post := createPost(t, router, "Idempotent Patch")
		payload := `{"title":"  Patched Title  ","tags":["a","b"]}`

		_, first := request(t, router, http.MethodPatch, "/api/v1/posts/"+post.ID.Hex(), payload)
		_, second := request(t, router, http.MethodPatch, "/api/v1/posts/"+post.ID.Hex(), payload)

		a, b := first.post(t), second.post(t)
		a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
		assert.Equal(t, a, b)
		assert.Equal(t, "Patched Title", b.Title)
	})

	t.Run("PUT replaces the text fields", func(t *testing.T) {
		post := createPost(t, router, "Replace Me")
		w, res := request(t, router, http.MethodPut, "/api/v1/posts/"+post.ID.Hex(),
			`{"title":"Replaced","content":"Entirely new content","author":"New Author","tags":["x"]}`)

		require.Equal(t, http.StatusOK, w.Code)
		updated := res.post(t)
		assert.Equal(t, "Replaced", updated.Title)
		assert.Equal(t, "New Author", updated.Author)
		assert.Equal(t, []string{"x"}, updated.Tags)
		assert.True(t, updated.CreatedAt.Equal(post.CreatedAt))
	})

	t.Run("PUT on a missing post", func(t *testing.T) {
		w, res := request(t, router, http.MethodPut, "/api/v1/posts/"+models.NewID().Hex(),
			`{"title":"Replaced","content":"Entirely new content","author":"New Author"}`)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Post not found", res.Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		w, res := request(t, router, http.MethodPost, "/api/v1/posts", `{"title":"unterminated`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Malformed JSON body", res.Error)
	})
}

func TestPaginationRoutes(t *testing.T) {
	router := setupTestRouter(t, setupTestRepository(t))
	for i := 0; i < 23; i++ {
		createPost(t, router, fmt.Sprintf("Paged post %02d", i))
	}

	tests := []struct {
		query string
		page  int
		limit int
		count int
	}{
		{"", 1, 10, 10},
		{"?page=3", 3, 10, 3},
		{"?limit=0", 1, 1, 1},
		{"?limit=-5", 1, 1, 1},
		{"?limit=1000", 1, 100, 23},
		{"?page=2abc&limit=3.9", 2, 3, 3},
		{"?page=x&limit=y", 1, 10, 10},
		{"?page=5&limit=5", 5, 5, 3},
		{"?page=6&limit=5", 6, 5, 0},
		{"?page=1000000000000000000", math.MaxInt32, 10, 0},
	}

	for _, tt := range tests {
		t.Run("GET /api/v1/posts"+tt.query, func(t *testing.T) {
			w, res := request(t, router, http.MethodGet, "/api/v1/posts"+tt.query, "")

			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, res.Success)
			posts := res.posts(t)
			assert.Len(t, posts, tt.count)
			assert.Equal(t, tt.count, res.Count)
			assert.Equal(t, tt.page, res.Pagination.Page)
			assert.Equal(t, tt.limit, res.Pagination.Limit)
			assert.Equal(t, int64(23), res.Pagination.TotalDocs)
			assert.Equal(t, int(math.Ceil(23/float64(tt.limit))), res.Pagination.TotalPages)
			assert.LessOrEqual(t, len(posts), res.Pagination.Limit)

			for i := 1; i < len(posts); i++ {
				assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt))
			}
		})
	}

	t.Run("newest first", func(t *testing.T) {
		_, res := request(t, router, http.MethodGet, "/api/v1/posts?limit=1", "")
		require.Len(t, res.posts(t), 1)
		assert.Equal(t, "Paged post 22", res.posts(t)[0].Title)
	})
}

func TestHealthRoute(t *testing.T) {
	router := setupTestRouter(t, mock.NewPostRepository())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	ts, err := time.Parse(time.RFC3339Nano, res.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
	assert.True(t, strings.HasSuffix(res.Timestamp, "Z"))
}

func TestRouteNotFound(t *testing.T) {
	router := setupTestRouter(t, mock.NewPostRepository())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/unknown"},
		{http.MethodGet, "/api/v2/posts?page=2"},
		{http.MethodPost, "/health"},
		{http.MethodPost, "/api/v1/posts/" + models.NewID().Hex()},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, res := request(t, router, tt.method, tt.path, "")

			require.Equal(t, http.StatusNotFound, w.Code)
			assert.False(t, res.Success)
			assert.Equal(t, "Route "+tt.path+" not found", res.Error)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	router := setupTestRouter(t, mock.NewPostRepository())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "trace-42", w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	router := setupTestRouter(t, mock.NewPostRepository())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/posts", nil)
	req.Header.Set("Origin", "http://frontend.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// panickingRepository blows up on listing.
type panickingRepository struct {
	*mock.PostRepository
}

func (p panickingRepository) Find(ctx context.Context, q repositories.Query) ([]*models.Post, error) {
	panic("index corrupted")
}

func TestErrorShapes(t *testing.T) {
	t.Run("panic becomes a 500 envelope", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		router := NewHandler(panickingRepository{mock.NewPostRepository()}, config.Default(), zap.New(core))

		w, res := request(t, router, http.MethodGet, "/api/v1/posts", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, res.Success)
		assert.Equal(t, "Internal Server Error", res.Error)
		assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
		assert.Equal(t, 1, logs.FilterMessage("Internal Server Error").Len())

		access := logs.FilterMessage("request").All()
		require.Len(t, access, 1)
		assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])
	})

	t.Run("development adds the stack", func(t *testing.T) {
		repo := mock.NewPostRepository()
		repo.FailWith(fmt.Errorf("connection refused"))
		cfg := config.Default()
		cfg.Env = config.EnvDevelopment
		router := NewHandler(repo, cfg, zap.NewNop())

		w, res := request(t, router, http.MethodGet, "/api/v1/posts", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", res.Error)
		assert.Contains(t, res.Stack, "connection refused")
	})

	t.Run("production hides the stack", func(t *testing.T) {
		repo := mock.NewPostRepository()
		repo.FailWith(fmt.Errorf("connection refused"))
		router := NewHandler(repo, config.Default(), zap.NewNop())

		w, res := request(t, router, http.MethodGet, "/api/v1/posts", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, res.Stack)
	})
}
