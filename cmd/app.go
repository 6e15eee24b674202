package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/galshelf/internal/utils"
	"github.com/sw33tLie/galshelf/pkg/prefs"
	"github.com/sw33tLie/galshelf/pkg/session"
	"github.com/sw33tLie/galshelf/pkg/source"
	"github.com/sw33tLie/galshelf/pkg/storage"
	"github.com/sw33tLie/galshelf/pkg/whttp"
)

// app bundles what most subcommands need. Close releases the preference
// store.
type app struct {
	kv      storage.KV
	prefs   *prefs.Store
	http    *retryablehttp.Client
	session *session.Session
}

func (a *app) Close() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			utils.Log.Warnf("Closing preference store: %v", err)
		}
	}
}

// prefsLocation resolves the configured backend and file path.
func prefsLocation() (backend, path string) {
	backend = viper.GetString("prefs.backend")
	path = viper.GetString("prefs.path")
	if path == "" {
		path = filepath.Join(viper.GetString("prefs.dir"), storage.DefaultFilename(backend))
	}
	return backend, path
}

func openPrefs(ctx context.Context) (storage.KV, *prefs.Store, error) {
	backend, path := prefsLocation()
	kv, err := storage.Open(backend, path, utils.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening preferences at %s: %w", path, err)
	}
	store, err := prefs.Open(ctx, kv, utils.Log)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	utils.Log.Debugf("Using %s preferences at %s", backend, kv.Location())
	return kv, store, nil
}

func newHTTPClient(cmd *cobra.Command, retries int) (*retryablehttp.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return whttp.NewClient(whttp.ClientOptions{
		Retries: retries,
		Timeout: time.Duration(viper.GetInt("catalog.timeout")) * time.Second,
		Proxy:   proxy,
		Logger:  utils.RetryLogger{L: utils.Log},
	})
}

func newApp(cmd *cobra.Command) (*app, error) {
	kv, store, err := openPrefs(cmd.Context())
	if err != nil {
		return nil, err
	}
	client, err := newHTTPClient(cmd, viper.GetInt("catalog.retries"))
	if err != nil {
		kv.Close()
		return nil, err
	}
	src := source.NewClient(viper.GetString("catalog.endpoint"), client)
	sess := session.New(src, store, session.Options{
		PageSize: viper.GetInt("view.page_size"),
		Log:      utils.Log,
	})
	return &app{kv: kv, prefs: store, http: client, session: sess}, nil
}

// loadCatalog loads path, or the saved folder when path is empty, and
// logs the resulting status line.
func (a *app) loadCatalog(ctx context.Context, path string) (session.State, error) {
	var (
		st  session.State
		err error
	)
	if path == "" {
		if a.prefs.SavedPath() == "" {
			return a.session.State(), errors.New("no folder saved yet, run 'galshelf load <absolute path>' first")
		}
		st, err = a.session.Restore(ctx)
	} else {
		st, err = a.session.Load(ctx, path, true)
	}
	if err != nil {
		return st, errors.New(st.Status.Message)
	}
	switch st.Status.Kind {
	case session.StatusSuccess:
		utils.Log.Info(st.Status.Message)
	default:
		utils.Log.Warn(st.Status.Message)
	}
	return st, nil
}
