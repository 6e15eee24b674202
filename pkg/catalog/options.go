package catalog

import (
	"sort"
	"strings"
)

// Options holds the distinct values a UI offers in its filter selectors.
type Options struct {
	Developers []string `json:"developers" yaml:"developers"`
	Series     []string `json:"series" yaml:"series"`
	Tiers      []string `json:"tiers" yaml:"tiers"`
}

// FilterOptions collects the distinct developers, series names and duration
// tiers present in records. Developers and series are sorted
// case-insensitively; tiers keep the bucket order of DurationTiers, with
// producer-specific labels appended alphabetically.
func FilterOptions(records []Record) Options {
	devs := make(map[string]struct{})
	series := make(map[string]struct{})
	tiers := make(map[string]struct{})
	for _, r := range records {
		if r.Developer != "" {
			devs[r.Developer] = struct{}{}
		}
		if r.SeriesName != "" {
			series[r.SeriesName] = struct{}{}
		}
		if r.DurationTier != "" {
			tiers[r.DurationTier] = struct{}{}
		}
	}

	opts := Options{
		Developers: sortedFold(devs),
		Series:     sortedFold(series),
		Tiers:      []string{},
	}
	for _, t := range DurationTiers {
		if _, ok := tiers[t]; ok {
			opts.Tiers = append(opts.Tiers, t)
			delete(tiers, t)
		}
	}
	opts.Tiers = append(opts.Tiers, sortedFold(tiers)...)
	return opts
}

func sortedFold(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}
