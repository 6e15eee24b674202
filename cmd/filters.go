package cmd

import (
	"github.com/spf13/cobra"
)

// filtersCmd represents the filters command
var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Print the developers, series and duration tiers of the saved folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.loadCatalog(cmd.Context(), "")
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, format, st.Options); ok {
			return err
		}
		printOptions(out, st.Options)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)
	filtersCmd.Flags().StringP("output", "o", "text", "Output format: text, json, yaml")
}
