package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/sw33tLie/galshelf/pkg/prefs"
	"github.com/sw33tLie/galshelf/pkg/query"
	"github.com/sw33tLie/galshelf/pkg/source"
	"github.com/sw33tLie/galshelf/pkg/storage"
)

type fakeSource struct {
	mu      sync.Mutex
	body    string
	err     error
	calls   []string
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchCatalog(ctx context.Context, folder string) (source.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, folder)
	started, release := f.started, f.release
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if f.err != nil {
		return source.Result{}, f.err
	}
	return source.ParseEnvelope([]byte(f.body)), nil
}

func games(n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(`{"id":"g%02d","title_display":"Game %02d","developer":"Dev%d","duration_hours":%d}`, i, i, i%2, i+1))
	}
	return `{"games":[` + strings.Join(parts, ",") + `],"warnings":["w1"]}`
}

func newSession(t *testing.T, src source.CatalogSource) (*Session, *prefs.Store) {
	t.Helper()
	kv, err := storage.Open(storage.BackendFile, t.TempDir()+"/prefs.json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	store, err := prefs.Open(context.Background(), kv, nil)
	require.NoError(t, err)
	return New(src, store, Options{}), store
}

func TestLoadSuccess(t *testing.T) {
	src := &fakeSource{body: games(25)}
	s, store := newSession(t, src)

	st, err := s.Load(context.Background(), "  /srv/games ", true)
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/games"}, src.calls)
	require.Equal(t, "/srv/games", store.SavedPath())
	require.Len(t, st.Records, 25)
	require.Equal(t, 3, st.TotalPages)
	require.Equal(t, 1, st.Page)
	require.True(t, st.FiltersEnabled)
	require.Equal(t, StatusSuccess, st.Status.Kind)
	require.Equal(t, "成功加载 25 个游戏。 (1条加载警告)", st.Status.Message)
	require.Equal(t, []string{"Dev0", "Dev1"}, st.Options.Developers)
	require.Equal(t, 1, st.Generation)

	page := s.CurrentPage()
	require.Len(t, page.Items, 12)
	require.Equal(t, "g00", page.Items[0].ID)
}

func TestLoadRejectsBadPaths(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		user          bool
		wantStatus    string
		wantPermanent bool
	}{
		{"empty user load", "   ", true, "请输入MD文件夹的绝对路径。", false},
		{"relative path", "games/md", true, `请输入有效的绝对路径 (例如 C:\games 或 /path/to/games)。`, true},
		{"relative automatic", "games/md", false, `请输入有效的绝对路径 (例如 C:\games 或 /path/to/games)。`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{body: games(1)}
			s, _ := newSession(t, src)
			st, err := s.Load(context.Background(), tt.path, tt.user)
			require.ErrorIs(t, err, ErrInvalidPath)
			require.Empty(t, src.calls)
			require.False(t, st.FiltersEnabled)
			require.Equal(t, tt.wantStatus, st.Status.Message)
			require.Equal(t, tt.wantPermanent, st.Status.Permanent)
		})
	}
}

func TestValidatePath(t *testing.T) {
	for _, ok := range []string{"/", "/srv/games", `C:\games`, `d:\x`} {
		_, err := ValidatePath(ok)
		require.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "games", `C:games`, "./x", "~/games"} {
		_, err := ValidatePath(bad)
		require.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestAutomaticLoadFailureHint(t *testing.T) {
	src := &fakeSource{err: &source.ServerError{Status: 404, Message: "Could not access or read directory"}}
	s, store := newSession(t, src)
	require.NoError(t, store.SavePath(context.Background(), "/gone"))

	st, err := s.Restore(context.Background())
	var se *source.ServerError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StatusError, st.Status.Kind)
	require.True(t, st.Status.Permanent)
	require.Equal(t, "错误: Could not access or read directory (自动加载上次路径失败). 请检查路径或手动加载。", st.Status.Message)
	require.Empty(t, st.Records)
	require.False(t, st.FiltersEnabled)

	src.err = errors.New("connection refused")
	st, _ = s.Load(context.Background(), "/gone", true)
	require.Equal(t, "错误: connection refused", st.Status.Message)
}

func TestLoadFailureClearsPreviousRecords(t *testing.T) {
	src := &fakeSource{body: games(3)}
	s, _ := newSession(t, src)
	_, err := s.Load(context.Background(), "/a", true)
	require.NoError(t, err)

	src.err = errors.New("boom")
	st, err := s.Load(context.Background(), "/a", true)
	require.Error(t, err)
	require.Empty(t, st.Records)
	require.Empty(t, st.View)
	require.Equal(t, 2, st.Generation)
}

func TestLoadEmptyAndMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"server message", `{"games":[],"message":"No .md files found in the specified directory."}`, "No .md files found in the specified directory."},
		{"no message", `{"games":[]}`, "未找到 .md 文件或文件夹中无内容。"},
		{"malformed", `{"games":"nope"}`, "响应数据格式不正确或未包含游戏列表。"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t, &fakeSource{body: tt.body})
			st, err := s.Load(context.Background(), "/x", true)
			require.NoError(t, err)
			require.Equal(t, tt.want, st.Status.Message)
			require.Equal(t, StatusInfo, st.Status.Kind)
			require.True(t, st.Status.Permanent)
			require.False(t, st.FiltersEnabled)
			require.Empty(t, st.Records)
		})
	}
}

func TestLoadInProgress(t *testing.T) {
	src := &fakeSource{body: games(2), started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newSession(t, src)

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "/a", true)
		done <- err
	}()
	<-src.started

	st, err := s.Load(context.Background(), "/b", true)
	require.ErrorIs(t, err, ErrLoadInProgress)
	require.True(t, st.Loading)
	require.Equal(t, StatusLoading, s.State().Status.Kind)

	close(src.release)
	require.NoError(t, <-done)
	require.False(t, s.State().Loading)
}

func TestFiltersAndStatus(t *testing.T) {
	s, _ := newSession(t, &fakeSource{body: games(25)})
	_, err := s.Load(context.Background(), "/a", true)
	require.NoError(t, err)

	s.SetPage(3)
	st := s.ApplyFilter(Filter{Developer: "Dev1", Sort: query.ParseSortKey("duration_hours_desc")})
	require.Equal(t, 1, st.Page)
	require.Equal(t, 12, st.Matching)
	require.Equal(t, 2, st.TotalPages)
	require.Equal(t, "g23", st.View[0].ID)
	require.Equal(t, "筛选出 12 个游戏。", st.Status.Message)

	st = s.ApplyFilter(Filter{SearchTerm: "nothing matches"})
	require.Equal(t, "没有符合当前筛选条件的游戏。", st.Status.Message)
	require.Equal(t, 1, st.TotalPages)

	st = s.ApplyFilter(DefaultFilter)
	require.Equal(t, "显示 25 个游戏。", st.Status.Message)

	s.ApplyFilter(Filter{SeriesName: "none"})
	st = s.ClearFilters()
	require.Equal(t, DefaultFilter, st.Filter)
	require.Equal(t, "已清空所有筛选条件，显示 25 个游戏。", st.Status.Message)
}

func TestClearFiltersWithoutRecords(t *testing.T) {
	s, store := newSession(t, &fakeSource{})
	require.NoError(t, store.SavePath(context.Background(), "/x"))
	s = New(&fakeSource{}, store, Options{})

	st := s.ClearFilters()
	require.Equal(t, "请先加载资源。", st.Status.Message)
}

func TestSetPageClamps(t *testing.T) {
	s, _ := newSession(t, &fakeSource{body: games(25)})
	_, err := s.Load(context.Background(), "/a", true)
	require.NoError(t, err)

	require.Equal(t, 3, s.SetPage(99).Page)
	require.Equal(t, 1, s.SetPage(-2).Page)
	require.Equal(t, 2, s.SetPage(2).Page)
	require.Equal(t, "g12", s.CurrentPage().Items[0].ID)

	st := s.SetPageSize(5)
	require.Equal(t, 1, st.Page)
	require.Equal(t, 5, st.TotalPages)
}

func TestToggleFavoriteRefreshesFavoritesView(t *testing.T) {
	s, store := newSession(t, &fakeSource{body: games(4)})
	ctx := context.Background()
	_, err := s.Load(ctx, "/a", true)
	require.NoError(t, err)

	_, on, err := s.ToggleFavorite(ctx, "g01")
	require.NoError(t, err)
	require.True(t, on)

	st := s.ApplyFilter(Filter{FavoritesOnly: true})
	require.Len(t, st.View, 1)

	st, on, err = s.ToggleFavorite(ctx, "g01")
	require.NoError(t, err)
	require.False(t, on)
	require.Empty(t, st.View)
	require.False(t, store.IsFavorite("g01"))

	_, _, err = s.ToggleFavorite(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFavoritesSurviveReload(t *testing.T) {
	s, _ := newSession(t, &fakeSource{body: games(3)})
	ctx := context.Background()
	_, err := s.Load(ctx, "/a", true)
	require.NoError(t, err)
	_, _, err = s.ToggleFavorite(ctx, "g02")
	require.NoError(t, err)

	_, err = s.Load(ctx, "/a", true)
	require.NoError(t, err)
	require.True(t, s.IsFavorite("g02"))
}

func TestSelect(t *testing.T) {
	s, _ := newSession(t, &fakeSource{body: games(3)})
	_, err := s.Load(context.Background(), "/a", true)
	require.NoError(t, err)

	st, err := s.Select("g01")
	require.NoError(t, err)
	require.NotNil(t, st.Selected)
	require.Equal(t, "Game 01", st.Selected.Title)

	_, err = s.Select("missing")
	require.ErrorIs(t, err, ErrNotFound)

	st, err = s.Select("")
	require.NoError(t, err)
	require.Nil(t, st.Selected)
}

func TestSynthesizedIDsAreUsable(t *testing.T) {
	body := `{"games":[{"title_display":"No ID"}]}`
	s, _ := newSession(t, &fakeSource{body: body})
	st, err := s.Load(context.Background(), "/a", true)
	require.NoError(t, err)
	id := st.Records[0].ID
	require.True(t, strings.HasPrefix(id, "unknown-id-"))
	_, err = s.Select(id)
	require.NoError(t, err)
	require.Equal(t, catalog.UnknownDurationTier, st.Records[0].DurationTier)
}
