// Package query filters, searches and sorts an in-memory record set.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/sw33tLie/galshelf/pkg/catalog"
)

// Set is a set of record IDs.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Criteria describes one view of the catalog. Empty string selections do not
// filter.
type Criteria struct {
	SearchTerm    string
	Developer     string
	DurationTier  string
	SeriesName    string
	FavoritesOnly bool
	Favorites     Set
	Sort          SortKey
}

// IsFiltering reports whether any filter narrows the set.
func (c Criteria) IsFiltering() bool {
	return normalizeTerm(c.SearchTerm) != "" || c.Developer != "" || c.DurationTier != "" ||
		c.SeriesName != "" || c.FavoritesOnly
}

// Run applies the filter chain and the sort. The input slice is not
// modified. Run never fails.
func Run(records []catalog.Record, c Criteria) []catalog.Record {
	term := normalizeTerm(c.SearchTerm)
	out := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		if c.FavoritesOnly && !c.Favorites.Has(r.ID) {
			continue
		}
		if term != "" && !Matches(r, term) {
			continue
		}
		if c.Developer != "" && r.Developer != c.Developer {
			continue
		}
		if c.DurationTier != "" && r.DurationTier != c.DurationTier {
			continue
		}
		if c.SeriesName != "" && r.SeriesName != c.SeriesName {
			continue
		}
		out = append(out, r)
	}
	Sort(out, c.Sort)
	return out
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether term (already lower-cased and trimmed) is a
// substring of any searchable field of r. Empty fields and placeholder
// titles never match.
func Matches(r catalog.Record, term string) bool {
	fields := [...]string{
		realTitle(r.TitleDisplay),
		r.Developer,
		r.SeriesName,
		realTitle(r.TitleOriginal),
		r.Names.Chinese,
		r.Names.Japanese,
		r.Names.English,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	for _, a := range r.Names.Aliases {
		if a != "" && strings.Contains(strings.ToLower(a), term) {
			return true
		}
	}
	return false
}

func realTitle(s string) string {
	if s == catalog.PlaceholderTitle {
		return ""
	}
	return s
}

// Sort orders records in place by key. The sort is stable.
func Sort(records []catalog.Record, key SortKey) {
	less := lessFunc(key)
	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

func lessFunc(key SortKey) func(a, b catalog.Record) bool {
	asc := key.Direction != Desc
	switch key.Field.Kind {
	case KindReleaseDate:
		return func(a, b catalog.Record) bool {
			da, okA := ParseReleaseDate(a.ReleaseDate)
			db, okB := ParseReleaseDate(b.ReleaseDate)
			switch {
			case !okA && !okB:
				return false
			case !okA:
				// invalid dates go last ascending, first descending
				return !asc
			case !okB:
				return asc
			}
			if asc {
				return da.Before(db)
			}
			return db.Before(da)
		}
	case KindDurationHours:
		return func(a, b catalog.Record) bool {
			// unknown hours go last ascending, first descending, like dates
			switch {
			case a.DurationHours == nil && b.DurationHours == nil:
				return false
			case a.DurationHours == nil:
				return !asc
			case b.DurationHours == nil:
				return asc
			}
			if asc {
				return *a.DurationHours < *b.DurationHours
			}
			return *a.DurationHours > *b.DurationHours
		}
	default:
		name := key.Field.Name
		if name == "" {
			name = FieldTitleDisplay.Name
		}
		return func(a, b catalog.Record) bool {
			va, _ := a.StringField(name)
			vb, _ := b.StringField(name)
			va, vb = strings.ToLower(va), strings.ToLower(vb)
			if asc {
				return va < vb
			}
			return va > vb
		}
	}
}

var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1",
	"2006",
}

// ParseReleaseDate parses a producer-supplied date after normalizing "." and
// "/" separators to "-".
func ParseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	s = strings.NewReplacer(".", "-", "/", "-").Replace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
