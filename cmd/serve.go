package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/galshelf/internal/server"
	"github.com/sw33tLie/galshelf/internal/utils"
	"github.com/sw33tLie/galshelf/pkg/lazyimage"
	"github.com/sw33tLie/galshelf/pkg/session"
	"github.com/sw33tLie/galshelf/pkg/watch"
	"github.com/sw33tLie/galshelf/pkg/whttp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog browser as a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		user, _ := cmd.Flags().GetString("user")
		pass, _ := cmd.Flags().GetString("pass")
		watchFolder, _ := cmd.Flags().GetBool("watch")

		if (user == "") != (pass == "") {
			return errors.New("--user and --pass must be set together")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.prefs.SavedPath() != "" {
			st, err := a.session.Restore(ctx)
			if err != nil {
				utils.Log.Warnf("Restoring %s: %s", a.prefs.SavedPath(), st.Status.Message)
			} else {
				utils.Log.Info(st.Status.Message)
			}
		}

		// Covers fail once and stay failed, so the image client never retries.
		imageClient, err := newHTTPClient(cmd, 0)
		if err != nil {
			return err
		}
		images := lazyimage.New(lazyimage.Options{
			Fetch: func(ctx context.Context, url string) ([]byte, error) {
				return whttp.FetchBytes(ctx, imageClient, url)
			},
			Margin:      viper.GetFloat64("images.margin"),
			Concurrency: viper.GetInt("images.concurrency"),
			OnFailed: func(h *lazyimage.Handle, err error) {
				utils.Log.Debugf("Cover of %s failed: %v", h.ID, err)
			},
			Log: utils.Log,
		})
		defer images.Close()

		if watchFolder {
			go watchSavedFolder(ctx, a.session, a.prefs.SavedPath())
		}

		srv := server.New(a.session, images, user, pass, utils.Log)
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(listenAddr) }()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			utils.Log.Info("Shutting down")
			return nil
		}
	},
}

func watchSavedFolder(ctx context.Context, sess *session.Session, dir string) {
	if dir == "" {
		utils.Log.Warn("No saved folder to watch")
		return
	}
	err := watch.Folder(ctx, dir, watch.Options{
		OnChange: func(ctx context.Context) {
			st, err := sess.Restore(ctx)
			switch {
			case errors.Is(err, session.ErrLoadInProgress):
				utils.Log.Debug("Reload skipped, a load is already running")
			case err != nil:
				utils.Log.Warnf("Reload after change: %s", st.Status.Message)
			default:
				utils.Log.Info(st.Status.Message)
			}
		},
		Log: utils.Log,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		utils.Log.Errorf("Watching %s: %v", dir, err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:7600", "HTTP listen address")
	serveCmd.Flags().String("user", "", "Basic auth username (optional)")
	serveCmd.Flags().String("pass", "", "Basic auth password (optional)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the saved folder when its markdown files change")
}
