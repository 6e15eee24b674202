package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/galshelf/pkg/storage"
)

// prefsCmd represents the prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect the preference store",
}

var prefsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints where preferences live and what they hold.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, store, err := openPrefs(cmd.Context())
		if err != nil {
			return err
		}
		defer kv.Close()

		keys, err := kv.Keys(cmd.Context())
		if err != nil {
			return err
		}
		backend, _ := prefsLocation()

		saved := store.SavedPath()
		if saved == "" {
			saved = "-"
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "BACKEND\t%s\t\n", backend)
		fmt.Fprintf(w, "LOCATION\t%s\t\n", kv.Location())
		fmt.Fprintf(w, "KEYS\t%d\t\n", len(keys))
		fmt.Fprintf(w, "FAVORITES\t%d\t\n", len(store.FavoriteIDs()))
		fmt.Fprintf(w, "FOLDER\t%s\t\n", saved)
		return w.Flush()
	},
}

var prefsChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent preference writes (sqlite backend only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kv, _, err := openPrefs(cmd.Context())
		if err != nil {
			return err
		}
		defer kv.Close()

		db, ok := kv.(*storage.DB)
		if !ok {
			return fmt.Errorf("the change log is only kept by the %s backend", storage.BackendSQLite)
		}
		changes, err := db.ListRecentChanges(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Fprintf(out, "%s  %-6s  %s\n", ts, c.ChangeType, c.Key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsStatsCmd)
	prefsCmd.AddCommand(prefsChangesCmd)
	prefsChangesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
