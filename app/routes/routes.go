package routes

import (
	"net/http"

	"postsapi/app/config"
	"postsapi/app/controllers"
	"postsapi/app/middleware"
	"postsapi/app/repositories"
	"postsapi/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controllers bundles the handlers the router dispatches to.
type Controllers struct {
	Posts  *controllers.PostController
	Health *controllers.HealthController
	Errors *controllers.ErrorRenderer
}

// NewHandler wires the service and controllers for repo and returns the
// complete HTTP handler.
func NewHandler(repo repositories.PostRepository, cfg config.Config, log *zap.Logger) http.Handler {
	postService := services.NewPostService(repo)
	return SetupRoutes(Controllers{
		Posts:  controllers.NewPostController(postService),
		Health: controllers.NewHealthController(),
		Errors: controllers.NewErrorRenderer(log, cfg.IsDevelopment()),
	}, cfg, log)
}

// SetupRoutes defines the application's routes and wraps them in the
// global middleware chain.
func SetupRoutes(c Controllers, cfg config.Config, log *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(c.Errors.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(c.Errors.NotFound)

	handle := func(h controllers.HandlerFunc) http.HandlerFunc {
		return controllers.Handle(c.Errors, h)
	}

	router.HandleFunc("/health", handle(c.Health.Check)).Methods("GET")

	// API v1
	api := router.PathPrefix("/api/v1").Subrouter()
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", handle(c.Posts.Index)).Methods("GET")
	posts.HandleFunc("", handle(c.Posts.Create)).Methods("POST")
	posts.HandleFunc("/{id}", handle(c.Posts.Show)).Methods("GET")
	posts.HandleFunc("/{id}", handle(c.Posts.Update)).Methods("PUT")
	posts.HandleFunc("/{id}", handle(c.Posts.Patch)).Methods("PATCH")
	posts.HandleFunc("/{id}", handle(c.Posts.Delete)).Methods("DELETE")

	var handler http.Handler = router
	handler = middleware.ContentTypeJSON(handler)
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.Recoverer(log, c.Errors.Render)(handler)
	handler = middleware.Logger(log)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
