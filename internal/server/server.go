package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/sw33tLie/galshelf/pkg/lazyimage"
	"github.com/sw33tLie/galshelf/pkg/logging"
	"github.com/sw33tLie/galshelf/pkg/session"
)

type Server struct {
	Session  *session.Session
	Images   *lazyimage.Scheduler
	Username string
	Password string
	Log      logging.Logger

	coverMu  sync.Mutex
	coverGen int
	covers   map[string]*lazyimage.Handle
}

func New(sess *session.Session, images *lazyimage.Scheduler, user, pass string, log logging.Logger) *Server {
	return &Server{
		Session:  sess,
		Images:   images,
		Username: user,
		Password: pass,
		Log:      logging.OrNop(log),
		covers:   make(map[string]*lazyimage.Handle),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.basicAuth(s.handleState))
	mux.HandleFunc("GET /api/games", s.basicAuth(s.handleGames))
	mux.HandleFunc("GET /api/games/{id}", s.basicAuth(s.handleGame))
	mux.HandleFunc("GET /api/games/{id}/cover", s.basicAuth(s.handleCover))
	mux.HandleFunc("GET /api/filters", s.basicAuth(s.handleFilters))
	mux.HandleFunc("POST /api/load", s.basicAuth(s.handleLoad))
	mux.HandleFunc("POST /api/filter", s.basicAuth(s.handleApplyFilter))
	mux.HandleFunc("POST /api/filter/clear", s.basicAuth(s.handleClearFilters))
	mux.HandleFunc("POST /api/page", s.basicAuth(s.handleSetPage))
	mux.HandleFunc("POST /api/favorites/{id}", s.basicAuth(s.handleToggleFavorite))

	return mux
}

func (s *Server) Start(addr string) error {
	s.Log.Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
