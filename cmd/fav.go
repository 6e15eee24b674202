package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// favCmd represents the fav command
var favCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle a game's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, store, err := openPrefs(cmd.Context())
		if err != nil {
			return err
		}
		defer kv.Close()

		on, err := store.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintf(cmd.OutOrStdout(), "已收藏 %s\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "已取消收藏 %s\n", args[0])
		}
		return nil
	},
}

var favListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the favorite game IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, store, err := openPrefs(cmd.Context())
		if err != nil {
			return err
		}
		defer kv.Close()

		ids := store.FavoriteIDs()
		format, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, format, ids); ok {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(favCmd)
	favCmd.AddCommand(favListCmd)
	favListCmd.Flags().StringP("output", "o", "text", "Output format: text, json, yaml")
}
