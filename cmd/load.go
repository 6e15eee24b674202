package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [absolute folder path]",
	Short: "Load the catalog of a folder and remember it",
	Long: `Load asks the catalog service to parse the markdown documents of a folder.
Without an argument the last saved folder is reloaded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		st, err := a.loadCatalog(cmd.Context(), path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, st.Status.Message)
		if verbose, _ := cmd.Flags().GetBool("warnings"); verbose && len(st.Status.Warnings) > 0 {
			fmt.Fprintln(out, "  - "+strings.Join(st.Status.Warnings, "\n  - "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolP("warnings", "w", false, "Print the load warnings reported by the catalog service")
}
