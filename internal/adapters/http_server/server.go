package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// requestTimeout bounds every handler; store and cache calls inherit it via the request context.
const requestTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

// New builds the router with the shared middleware stack. Routes are added by
// MountHandlers and Mount afterwards, since chi rejects Use after a route.
func New() *Server {
	m := chi.NewRouter()

	m.Use(chimw.RealIP, chimw.RequestID, chimw.Recoverer, chimw.CleanPath)
	m.Use(chimw.Timeout(requestTimeout))
	m.Use(Metrics, Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
