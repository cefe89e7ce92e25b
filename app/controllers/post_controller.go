package controllers

import (
	"net/http"

	"postsapi/app/models"
	"postsapi/app/services"
	"postsapi/app/validation"

	"github.com/gorilla/mux"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService) *PostController {
	return &PostController{
		postService: postService,
	}
}

// Index handles listing posts with search and pagination
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	list, err := pc.postService.GetAllPosts(r.Context(), services.ListParams{
		Search: query.Get("search"),
		Page:   query.Get("page"),
		Limit:  query.Get("limit"),
	})
	if err != nil {
		return err
	}

	posts := list.Posts
	if posts == nil {
		posts = []*models.Post{}
	}
	sendJSON(w, http.StatusOK, ListResponse{
		Success:    true,
		Count:      len(posts),
		Pagination: list.Pagination,
		Data:       posts,
	})
	return nil
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) error {
	post, err := pc.postService.GetPostByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	sendData(w, http.StatusOK, post)
	return nil
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) error {
	in, err := decodeInput(w, r)
	if err != nil {
		return err
	}
	if violations := validation.ValidateCreate(in); len(violations) > 0 {
		return models.NewValidationError(violations)
	}

	post, err := pc.postService.CreatePost(r.Context(), validation.DecodePost(in))
	if err != nil {
		return err
	}
	sendData(w, http.StatusCreated, post)
	return nil
}

// Update handles replacing a post
func (pc *PostController) Update(w http.ResponseWriter, r *http.Request) error {
	in, err := decodeInput(w, r)
	if err != nil {
		return err
	}
	if violations := validation.ValidateUpdate(in); len(violations) > 0 {
		return models.NewValidationError(violations)
	}

	post, err := pc.postService.UpdatePost(r.Context(), mux.Vars(r)["id"], validation.DecodeUpdate(in))
	if err != nil {
		return err
	}
	sendData(w, http.StatusOK, post)
	return nil
}

// Patch handles partially updating a post
func (pc *PostController) Patch(w http.ResponseWriter, r *http.Request) error {
	in, err := decodeInput(w, r)
	if err != nil {
		return err
	}
	if violations := validation.ValidatePartialUpdate(in); len(violations) > 0 {
		return models.NewValidationError(violations)
	}

	post, err := pc.postService.PartialUpdatePost(r.Context(), mux.Vars(r)["id"], validation.DecodeUpdate(in))
	if err != nil {
		return err
	}
	sendData(w, http.StatusOK, post)
	return nil
}

// Delete handles soft-deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) error {
	if _, err := pc.postService.DeletePost(r.Context(), mux.Vars(r)["id"]); err != nil {
		return err
	}
	// no body, so no content type
	w.Header().Del("Content-Type")
	w.WriteHeader(http.StatusNoContent)
	return nil
}
