package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sw33tLie/galshelf/internal/utils"
	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/sw33tLie/galshelf/pkg/detail"
	"github.com/sw33tLie/galshelf/pkg/pager"
	"github.com/sw33tLie/galshelf/pkg/query"
	"gopkg.in/yaml.v3"
)

const titleWidth = 32

// writeStructured renders v as json or yaml. It reports false for any other
// format so the caller can fall back to its text rendering.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	case "", "text", "table":
		return false, nil
	}
	return true, fmt.Errorf("unknown output format %q (available: text, json, yaml)", format)
}

type listedGame struct {
	catalog.Record `yaml:",inline"`
	IsFavorite     bool `json:"is_favorite" yaml:"is_favorite"`
}

func withFavorites(p pager.Page[catalog.Record], favs query.Set) pager.Page[listedGame] {
	out := pager.Page[listedGame]{
		Items:      make([]listedGame, 0, len(p.Items)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
	for _, r := range p.Items {
		out.Items = append(out.Items, listedGame{Record: r, IsFavorite: favs.Has(r.ID)})
	}
	return out
}

func printPage(w io.Writer, p pager.Page[listedGame]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tDEVELOPER\tRELEASE\tDURATION\tSERIES\t")
	for _, g := range p.Items {
		mark := " "
		if g.IsFavorite {
			mark = "★"
		}
		flag := ""
		if g.ParseError {
			flag = " (!)"
		} else if g.ParseWarning != "" {
			flag = " (?)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			mark, g.ID, utils.Truncate(g.TitleDisplay, titleWidth)+flag, g.Developer,
			g.ReleaseDate, g.DurationTier, g.SeriesName)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n第 %d / %d 页 (%d 个游戏)\n", p.Page, p.TotalPages, p.Total)
}

func printDetail(w io.Writer, v detail.View, favorite bool) {
	star := ""
	if favorite {
		star = " ★"
	}
	fmt.Fprintf(w, "%s%s\n", v.Title, star)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	if v.CoverImage != "" {
		fmt.Fprintf(w, "封面: %s\n", v.CoverImage)
	}
	for _, s := range v.Sections {
		fmt.Fprintf(w, "\n[%s]\n", s.Title)
		for _, e := range s.Entries {
			line := e.Value
			if e.URL != "" {
				if line != "" {
					line += " "
				}
				line += e.URL
			}
			if e.Password != "" {
				line += " (密码: " + e.Password + ")"
			}
			if e.Label != "" {
				fmt.Fprintf(w, "  %s: %s\n", e.Label, line)
			} else {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}

func printOptions(w io.Writer, o catalog.Options) {
	groups := []struct {
		name   string
		values []string
	}{
		{"开发商", o.Developers},
		{"系列", o.Series},
		{"时长", o.Tiers},
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s (%d):\n", g.name, len(g.values))
		for _, v := range g.values {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}
}
