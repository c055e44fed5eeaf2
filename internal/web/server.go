package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	webembed "github.com/raine/rapidlisting/web"
	"github.com/rs/zerolog/log"
)

// Options configures the web server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	SessionKey     []byte
	SecureCookies  bool
}

// Server holds all dependencies for page and API handlers.
type Server struct {
	sessions  *session.Manager
	service   *session.Service
	options   *listing.Options
	templates *Templates
	cookies   *Cookies
	opts      Options
	now       func() time.Time
}

// New creates a web server.
func New(sessions *session.Manager, service *session.Service, opts Options) (*Server, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	key := opts.SessionKey
	if len(key) == 0 {
		if key, err = DeriveKey(""); err != nil {
			return nil, err
		}
	}
	return &Server{
		sessions:  sessions,
		service:   service,
		options:   listing.DefaultOptions(),
		templates: templates,
		cookies:   NewCookies(key, opts.SecureCookies),
		opts:      opts,
		now:       time.Now,
	}, nil
}

// Handler returns the router with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	withSession := func(h http.HandlerFunc) http.Handler {
		return s.sessionMiddleware(h)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("unable to write healthcheck")
		}
	})

	// HTML form actions redirect back to the page.
	mux.Handle("GET /{$}", withSession(s.IndexPage))
	mux.Handle("POST /mode", withSession(s.ModeSubmit))
	mux.Handle("POST /form", withSession(s.FormSubmit))
	mux.Handle("POST /images", withSession(s.ImagesSubmit))
	mux.Handle("GET /images/{id}", withSession(s.ImageGet))
	mux.Handle("POST /images/{id}/delete", withSession(s.ImageDeleteSubmit))
	mux.Handle("POST /extract", withSession(s.ExtractSubmit))
	mux.Handle("POST /generate", withSession(s.GenerateSubmit))
	mux.Handle("POST /reset", withSession(s.ResetSubmit))

	mux.Handle("GET /api/state", withSession(s.APIState))
	mux.Handle("POST /api/mode", withSession(s.APIMode))
	mux.Handle("PUT /api/fields/{field}", withSession(s.APISetField))
	mux.Handle("POST /api/images", withSession(s.APIAddImages))
	mux.Handle("DELETE /api/images/{id}", withSession(s.APIDeleteImage))
	mux.Handle("POST /api/extract", withSession(s.APIExtract))
	mux.Handle("POST /api/generate", withSession(s.APIGenerate))
	mux.Handle("POST /api/copied/{field}", withSession(s.APICopied))
	mux.Handle("POST /api/reset", withSession(s.APIReset))
	mux.HandleFunc("GET /api/options", s.APIOptions)
	mux.HandleFunc("GET /api/options/models", s.APIModels)

	return LoggingMiddleware(mux)
}

// Run serves HTTP on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.opts.Addr).Msg("web interface available")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("web server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
