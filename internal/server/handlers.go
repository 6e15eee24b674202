package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/sw33tLie/galshelf/pkg/detail"
	"github.com/sw33tLie/galshelf/pkg/lazyimage"
	"github.com/sw33tLie/galshelf/pkg/pager"
	"github.com/sw33tLie/galshelf/pkg/query"
	"github.com/sw33tLie/galshelf/pkg/session"
	"github.com/sw33tLie/galshelf/pkg/source"
)

type gameJSON struct {
	catalog.Record
	IsFavorite bool `json:"is_favorite"`
}

type pageJSON struct {
	Items      []gameJSON     `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
	Matching   int            `json:"matching"`
	Filter     session.Filter `json:"filter"`
	Status     session.Status `json:"status"`
}

type detailJSON struct {
	detail.View
	IsFavorite bool `json:"is_favorite"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.State())
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.State().Options)
}

// handleGames returns a page of the session view. Query parameters
// (search, developer, tier, series, favorites, sort, page, page_size)
// evaluate an ad hoc view without changing the session.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	st := s.Session.State()
	q := r.URL.Query()
	favs := s.Session.Favorites()

	view, f := st.View, st.Filter
	if q.Has("search") || q.Has("developer") || q.Has("tier") || q.Has("series") || q.Has("favorites") || q.Has("sort") {
		f = session.Filter{
			SearchTerm:    q.Get("search"),
			Developer:     q.Get("developer"),
			DurationTier:  q.Get("tier"),
			SeriesName:    q.Get("series"),
			FavoritesOnly: q.Get("favorites") == "true",
			Sort:          query.ParseSortKey(q.Get("sort")),
		}
		view = query.Run(st.Records, query.Criteria{
			SearchTerm:    f.SearchTerm,
			Developer:     f.Developer,
			DurationTier:  f.DurationTier,
			SeriesName:    f.SeriesName,
			FavoritesOnly: f.FavoritesOnly,
			Favorites:     favs,
			Sort:          f.Sort,
		})
	}

	size := st.PageSize
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		size = v
	}
	page := st.Page
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		page = v
	}
	page = pager.Clamp(page, pager.TotalPages(len(view), size))

	p := pager.Paginate(view, size, page)
	out := pageJSON{
		Items:      make([]gameJSON, 0, len(p.Items)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      len(st.Records),
		Matching:   p.Total,
		Filter:     f,
		Status:     st.Status,
	}
	for _, rec := range p.Items {
		out.Items = append(out.Items, gameJSON{Record: rec, IsFavorite: favs.Has(rec.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := s.Session.Record(id)
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, detailJSON{View: detail.Assemble(rec), IsFavorite: s.Session.IsFavorite(id)})
}

// handleCover serves a record's cover image. Each cover is fetched at most
// once per catalog load.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	if s.Images == nil {
		writeError(w, http.StatusNotFound, "images disabled")
		return
	}
	id := r.PathValue("id")
	rec, ok := s.Session.Record(id)
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrNotFound.Error())
		return
	}
	if rec.CoverImage == "" {
		writeError(w, http.StatusNotFound, "no cover image")
		return
	}

	h := s.coverHandle(rec, s.Session.State().Generation)
	data, err := h.Wait(r.Context())
	if err != nil {
		if r.Context().Err() == nil {
			s.Log.Warnf("Cover for %s unavailable: %v", id, err)
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

// coverHandle returns the cover future of rec for load generation gen. The
// cache only moves forward: a request that observed an older generation
// reuses the current cache instead of resetting it.
func (s *Server) coverHandle(rec catalog.Record, gen int) *lazyimage.Handle {
	s.coverMu.Lock()
	defer s.coverMu.Unlock()
	if gen > s.coverGen {
		s.Images.Reset()
		s.covers = make(map[string]*lazyimage.Handle)
		s.coverGen = gen
	}
	h, ok := s.covers[rec.ID]
	if !ok {
		h = s.Images.Register(rec.ID, rec.CoverImage, lazyimage.Rect{})
		s.Images.Trigger(h)
		s.covers[rec.ID] = h
	}
	return h
}

type loadRequest struct {
	FolderPath string `json:"folder_path"`
}

// handleLoad loads folder_path, or the saved path when it is omitted.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var (
		st  session.State
		err error
	)
	if req.FolderPath == "" {
		st, err = s.Session.Restore(r.Context())
	} else {
		st, err = s.Session.Load(r.Context(), req.FolderPath, true)
	}

	var se *source.ServerError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, session.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrLoadInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, se.Message)
	default:
		writeError(w, http.StatusBadGateway, st.Status.Message)
	}
}

func (s *Server) handleApplyFilter(w http.ResponseWriter, r *http.Request) {
	f := session.DefaultFilter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Session.ApplyFilter(f))
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.ClearFilters())
}

type pageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PageSize > 0 && req.PageSize != s.Session.State().PageSize {
		s.Session.SetPageSize(req.PageSize)
	}
	writeJSON(w, http.StatusOK, s.Session.SetPage(req.Page))
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, on, err := s.Session.ToggleFavorite(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "favorite": on})
}
