package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/galshelf/pkg/session"
)

// pathCmd represents the path command
var pathCmd = &cobra.Command{
	Use:   "path [absolute folder path]",
	Short: "Print or change the saved catalog folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, store, err := openPrefs(cmd.Context())
		if err != nil {
			return err
		}
		defer kv.Close()

		if len(args) == 0 {
			if store.SavedPath() == "" {
				return fmt.Errorf("no folder saved yet")
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.SavedPath())
			return nil
		}

		path, err := session.ValidatePath(args[0])
		if err != nil {
			return err
		}
		return store.SavePath(cmd.Context(), path)
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
}
