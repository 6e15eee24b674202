// Package session holds the application state of one catalog browser: the
// loaded records, the active filter, the page, the selection and the status
// line. Every transition returns the resulting State.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/sw33tLie/galshelf/pkg/detail"
	"github.com/sw33tLie/galshelf/pkg/logging"
	"github.com/sw33tLie/galshelf/pkg/pager"
	"github.com/sw33tLie/galshelf/pkg/prefs"
	"github.com/sw33tLie/galshelf/pkg/query"
	"github.com/sw33tLie/galshelf/pkg/source"
)

var (
	ErrInvalidPath    = errors.New("invalid folder path")
	ErrLoadInProgress = errors.New("a catalog load is already in progress")
	ErrNotFound       = errors.New("record not found")
)

// StatusKind classifies the status line.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
	StatusLoading StatusKind = "loading"
)

// Status is the one-line message shown to the user. A permanent status is
// not replaced by filter summaries.
type Status struct {
	Message   string     `json:"message" yaml:"message"`
	Kind      StatusKind `json:"kind" yaml:"kind"`
	Permanent bool       `json:"permanent" yaml:"permanent"`
	Warnings  []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Filter is the user-selected view criteria.
type Filter struct {
	SearchTerm    string        `json:"search" yaml:"search"`
	Developer     string        `json:"developer" yaml:"developer"`
	DurationTier  string        `json:"tier" yaml:"tier"`
	SeriesName    string        `json:"series" yaml:"series"`
	FavoritesOnly bool          `json:"favorites_only" yaml:"favorites_only"`
	Sort          query.SortKey `json:"sort" yaml:"sort"`
}

// DefaultFilter shows everything sorted by title.
var DefaultFilter = Filter{Sort: query.DefaultSort}

// State is a snapshot of the session. Slices are shared with the session
// and must not be modified.
type State struct {
	FolderPath     string           `json:"folder_path" yaml:"folder_path"`
	Loading        bool             `json:"loading" yaml:"loading"`
	Generation     int              `json:"generation" yaml:"generation"`
	Records        []catalog.Record `json:"-" yaml:"-"`
	View           []catalog.Record `json:"-" yaml:"-"`
	Filter         Filter           `json:"filter" yaml:"filter"`
	FiltersEnabled bool             `json:"filters_enabled" yaml:"filters_enabled"`
	Options        catalog.Options  `json:"options" yaml:"options"`
	Page           int              `json:"page" yaml:"page"`
	PageSize       int              `json:"page_size" yaml:"page_size"`
	TotalPages     int              `json:"total_pages" yaml:"total_pages"`
	Total          int              `json:"total" yaml:"total"`
	Matching       int              `json:"matching" yaml:"matching"`
	Selected       *detail.View     `json:"selected,omitempty" yaml:"selected,omitempty"`
	Status         Status           `json:"status" yaml:"status"`
}

// Options configures New.
type Options struct {
	PageSize int            // defaults to pager.DefaultPageSize
	Log      logging.Logger // optional; nil = no logging
}

// Session owns the mutable state. Methods serialize on an internal mutex;
// the catalog fetch of Load runs outside it so other calls keep working
// while a load is in flight.
type Session struct {
	src   source.CatalogSource
	prefs *prefs.Store
	log   logging.Logger

	mu    sync.Mutex
	state State
}

// New builds a session. The initial status asks for a folder when none was
// saved.
func New(src source.CatalogSource, store *prefs.Store, opts Options) *Session {
	log := logging.OrNop(opts.Log)
	size := opts.PageSize
	if size <= 0 {
		size = pager.DefaultPageSize
	}
	s := &Session{src: src, prefs: store, log: log}
	s.state = State{
		FolderPath: store.SavedPath(),
		Filter:     DefaultFilter,
		Page:       1,
		PageSize:   size,
		TotalPages: 1,
	}
	if s.state.FolderPath == "" {
		s.state.Status = Status{Message: "请输入MD文件夹路径 (绝对路径) 并加载资源。", Kind: StatusInfo, Permanent: true}
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

var absPath = regexp.MustCompile(`^([a-zA-Z]:\\|/)`)

// ValidatePath trims path and checks that it is absolute in either POSIX
// ("/games") or Windows ("C:\games") form.
func ValidatePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if !absPath.MatchString(path) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	return path, nil
}

// Restore loads the saved folder path as an automatic load. Without a saved
// path it returns the current state and ErrInvalidPath.
func (s *Session) Restore(ctx context.Context) (State, error) {
	return s.Load(ctx, s.prefs.SavedPath(), false)
}

// Load fetches and replaces the catalog. userInitiated distinguishes an
// explicit load from the automatic reload of the saved path, which changes
// the wording of errors and never persists the path.
func (s *Session) Load(ctx context.Context, path string, userInitiated bool) (State, error) {
	s.mu.Lock()
	if s.state.Loading {
		st := s.state
		s.mu.Unlock()
		return st, ErrLoadInProgress
	}

	clean, err := ValidatePath(path)
	if err != nil {
		s.state.FiltersEnabled = false
		switch {
		case strings.TrimSpace(path) == "":
			if userInitiated {
				s.state.Status = Status{Message: "请输入MD文件夹的绝对路径。", Kind: StatusError}
			}
		default:
			s.state.Status = Status{Message: `请输入有效的绝对路径 (例如 C:\games 或 /path/to/games)。`, Kind: StatusError, Permanent: true}
		}
		st := s.state
		s.mu.Unlock()
		return st, err
	}

	if userInitiated && clean != s.prefs.SavedPath() {
		if err := s.prefs.SavePath(ctx, clean); err != nil {
			s.log.Warnf("Could not save folder path: %v", err)
		}
	}

	s.state.Loading = true
	s.state.FolderPath = clean
	s.state.Records, s.state.View = nil, nil
	s.state.Options = catalog.Options{}
	s.state.Selected = nil
	s.state.Page, s.state.TotalPages, s.state.Total, s.state.Matching = 1, 1, 0, 0
	s.state.FiltersEnabled = false
	s.state.Status = Status{Message: "正在加载游戏列表...", Kind: StatusLoading}
	s.mu.Unlock()

	s.log.Infof("Loading catalog for %s from %s", clean, s.src.Name())
	res, fetchErr := s.src.FetchCatalog(ctx, clean)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Generation++

	if fetchErr != nil {
		msg := "错误: " + errorMessage(fetchErr)
		if !userInitiated {
			msg += " (自动加载上次路径失败). 请检查路径或手动加载。"
		}
		s.log.Errorf("Loading %s failed: %v", clean, fetchErr)
		s.state.Status = Status{Message: msg, Kind: StatusError, Permanent: true}
		return s.state, fetchErr
	}

	if res.Malformed {
		s.log.Warnf("Catalog response for %s had no games list", clean)
		s.state.Status = Status{Message: "响应数据格式不正确或未包含游戏列表。", Kind: StatusInfo, Permanent: true}
		return s.state, nil
	}

	records := catalog.Normalize(res.Records)
	if len(records) == 0 {
		msg := res.Message
		if msg == "" {
			msg = "未找到 .md 文件或文件夹中无内容。"
		}
		s.state.Status = Status{Message: msg, Kind: StatusInfo, Permanent: true}
		return s.state, nil
	}

	s.state.Records = records
	s.state.Options = catalog.FilterOptions(records)
	s.state.FiltersEnabled = true
	s.refreshLocked()

	msg := fmt.Sprintf("成功加载 %d 个游戏。", len(records))
	if len(res.Warnings) > 0 {
		msg += fmt.Sprintf(" (%d条加载警告)", len(res.Warnings))
		for _, w := range res.Warnings {
			s.log.Warnf("%s", w)
		}
	}
	s.state.Status = Status{Message: msg, Kind: StatusSuccess, Warnings: res.Warnings}
	s.log.Infof("Loaded %d games from %s", len(records), clean)
	return s.state, nil
}

func errorMessage(err error) string {
	var se *source.ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	if err.Error() == "" {
		return "未知错误"
	}
	return err.Error()
}

// ApplyFilter replaces the filter and returns to page 1.
func (s *Session) ApplyFilter(f Filter) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter = f
	s.refreshLocked()
	s.summarizeLocked()
	return s.state
}

// ClearFilters restores DefaultFilter.
func (s *Session) ClearFilters() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter = DefaultFilter
	s.refreshLocked()
	switch {
	case len(s.state.Records) > 0:
		s.state.Status = Status{Message: fmt.Sprintf("已清空所有筛选条件，显示 %d 个游戏。", len(s.state.View)), Kind: StatusInfo}
	case !s.state.Status.Permanent:
		s.state.Status = Status{Message: "请先加载资源。", Kind: StatusInfo, Permanent: true}
	}
	return s.state
}

// SetPage moves to page n, clamped to the available pages.
func (s *Session) SetPage(n int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Page = pager.Clamp(n, s.state.TotalPages)
	return s.state
}

// SetPageSize changes the page size and returns to page 1.
func (s *Session) SetPageSize(n int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		n = pager.DefaultPageSize
	}
	s.state.PageSize = n
	s.state.Page = 1
	s.state.TotalPages = pager.TotalPages(len(s.state.View), n)
	return s.state
}

// CurrentPage returns the records of the current page.
func (s *Session) CurrentPage() pager.Page[catalog.Record] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pager.Paginate(s.state.View, s.state.PageSize, s.state.Page)
}

// ToggleFavorite flips the favorite flag of id and reports the new value.
// With the favorites-only filter active the view is recomputed.
func (s *Session) ToggleFavorite(ctx context.Context, id string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		return s.state, false, ErrNotFound
	}
	on, err := s.prefs.ToggleFavorite(ctx, id)
	if err != nil {
		return s.state, on, err
	}
	if s.state.Filter.FavoritesOnly {
		s.refreshLocked()
		s.summarizeLocked()
	}
	return s.state, on, nil
}

// Favorites returns a copy of the favorite set.
func (s *Session) Favorites() query.Set {
	return s.prefs.Favorites()
}

// IsFavorite reports whether id is a favorite.
func (s *Session) IsFavorite(id string) bool {
	return s.prefs.IsFavorite(id)
}

// Select opens the detail view of id. An empty id closes it.
func (s *Session) Select(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.state.Selected = nil
		return s.state, nil
	}
	r, ok := findRecord(s.state.Records, id)
	if !ok {
		return s.state, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	v := detail.Assemble(r)
	s.state.Selected = &v
	return s.state, nil
}

// Record looks up a loaded record by ID.
func (s *Session) Record(id string) (catalog.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findRecord(s.state.Records, id)
}

func findRecord(records []catalog.Record, id string) (catalog.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return catalog.Record{}, false
}

func (s *Session) criteriaLocked() query.Criteria {
	f := s.state.Filter
	c := query.Criteria{
		SearchTerm:    f.SearchTerm,
		Developer:     f.Developer,
		DurationTier:  f.DurationTier,
		SeriesName:    f.SeriesName,
		FavoritesOnly: f.FavoritesOnly,
		Sort:          f.Sort,
	}
	if f.FavoritesOnly {
		c.Favorites = s.prefs.Favorites()
	}
	return c
}

func (s *Session) refreshLocked() {
	s.state.View = query.Run(s.state.Records, s.criteriaLocked())
	s.state.Total = len(s.state.Records)
	s.state.Matching = len(s.state.View)
	s.state.Page = 1
	s.state.TotalPages = pager.TotalPages(len(s.state.View), s.state.PageSize)
}

func (s *Session) summarizeLocked() {
	if s.state.Status.Permanent || len(s.state.Records) == 0 {
		return
	}
	switch {
	case len(s.state.View) == 0:
		s.state.Status = Status{Message: "没有符合当前筛选条件的游戏。", Kind: StatusInfo}
	case s.criteriaLocked().IsFiltering():
		s.state.Status = Status{Message: fmt.Sprintf("筛选出 %d 个游戏。", len(s.state.View)), Kind: StatusInfo}
	default:
		kind := StatusInfo
		if s.state.Status.Kind == StatusSuccess {
			kind = StatusSuccess
		}
		s.state.Status = Status{Message: fmt.Sprintf("显示 %d 个游戏。", len(s.state.Records)), Kind: kind}
	}
}
