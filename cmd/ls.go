package cmd

import (
	"github.com/spf13/cobra"
	"github.com/sw33tLie/galshelf/pkg/query"
	"github.com/sw33tLie/galshelf/pkg/session"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List one page of the saved folder's games",
	Example: `  galshelf ls --search riddle
  galshelf ls --developer ゆずソフト --sort release_date_desc --page 2
  galshelf ls --favorites -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.loadCatalog(cmd.Context(), ""); err != nil {
			return err
		}

		flags := cmd.Flags()
		search, _ := flags.GetString("search")
		developer, _ := flags.GetString("developer")
		tier, _ := flags.GetString("tier")
		series, _ := flags.GetString("series")
		favorites, _ := flags.GetBool("favorites")
		sortValue, _ := flags.GetString("sort")
		page, _ := flags.GetInt("page")
		pageSize, _ := flags.GetInt("page-size")
		format, _ := flags.GetString("output")

		a.session.ApplyFilter(session.Filter{
			SearchTerm:    search,
			Developer:     developer,
			DurationTier:  tier,
			SeriesName:    series,
			FavoritesOnly: favorites,
			Sort:          query.ParseSortKey(sortValue),
		})
		if pageSize > 0 {
			a.session.SetPageSize(pageSize)
		}
		st := a.session.SetPage(page)
		if st.Matching == 0 {
			cmd.PrintErrln(st.Status.Message)
		}

		p := withFavorites(a.session.CurrentPage(), a.session.Favorites())
		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, format, p); ok {
			return err
		}
		printPage(out, p)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringP("search", "s", "", "Case-insensitive substring over titles, names, aliases, developer and series")
	lsCmd.Flags().String("developer", "", "Only games by this developer (exact match)")
	lsCmd.Flags().String("tier", "", "Only games in this duration tier, e.g. 中篇")
	lsCmd.Flags().String("series", "", "Only games of this series (exact match)")
	lsCmd.Flags().BoolP("favorites", "f", false, "Only favorite games")
	lsCmd.Flags().String("sort", query.DefaultSort.String(), "Sort as <field>_<asc|desc>: title_display, release_date, duration_hours or any record field")
	lsCmd.Flags().IntP("page", "p", 1, "Page number (clamped to the available pages)")
	lsCmd.Flags().Int("page-size", 0, "Games per page (default from view.page_size)")
	lsCmd.Flags().StringP("output", "o", "text", "Output format: text, json, yaml")
}
