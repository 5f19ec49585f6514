// Package httpapi exposes the Recipe Store and the image lifecycle over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

type RecipeService interface {
	Create(ctx context.Context, in models.NewRecipe) (*models.Recipe, error)
	List(ctx context.Context) ([]*models.Recipe, error)
	GetByID(ctx context.Context, id string) (*models.Recipe, error)
	Update(ctx context.Context, id string, patch models.RecipePatch) (*models.Recipe, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, in models.NewRecipe, file *models.ImageFile) (*models.Recipe, error)
}

type ImageService interface {
	IssueUploadTarget(ctx context.Context) (*models.WriteHandle, error)
	ResolveDisplayURL(ctx context.Context, ref string) (string, error)
	Thumbnail(ctx context.Context, ref string, height int) ([]byte, string, error)
}

type HTTPServer struct {
	address        string
	recipes        RecipeService
	images         ImageService
	logger         logging.Logger
	allowedOrigins []string
	maxUploadBytes int64
}

func NewHTTPServer(a string, l logging.Logger, rs RecipeService, is ImageService, allowedOrigins []string, maxUploadBytes int64) *HTTPServer {
	return &HTTPServer{
		address:        a,
		logger:         l.With("module", "http_server"),
		recipes:        rs,
		images:         is,
		allowedOrigins: allowedOrigins,
		maxUploadBytes: maxUploadBytes,
	}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/uploads", s.issueUploadTarget).Methods(http.MethodPost)
	api.HandleFunc("/images/url", s.resolveDisplayURL).Methods(http.MethodGet)
	api.HandleFunc("/images/thumbnail", s.thumbnail).Methods(http.MethodGet)

	api.HandleFunc("/recipes", s.listRecipes).Methods(http.MethodGet)
	api.HandleFunc("/recipes", s.createRecipe).Methods(http.MethodPost)
	api.HandleFunc("/recipes/form", s.submitForm).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}", s.getRecipe).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}", s.updateRecipe).Methods(http.MethodPatch)
	api.HandleFunc("/recipes/{id}", s.deleteRecipe).Methods(http.MethodDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(r)
}

func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
