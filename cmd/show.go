package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the details of one game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.loadCatalog(cmd.Context(), ""); err != nil {
			return err
		}
		st, err := a.session.Select(args[0])
		if err != nil {
			return err
		}
		if st.Selected == nil {
			return fmt.Errorf("empty game id")
		}

		format, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, format, st.Selected); ok {
			return err
		}
		printDetail(out, *st.Selected, a.session.IsFavorite(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("output", "o", "text", "Output format: text, json, yaml")
}
