package query

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sw33tLie/galshelf/pkg/catalog"
)

func hours(f float64) *float64 { return &f }

func ids(records []catalog.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func sample() []catalog.Record {
	return []catalog.Record{
		{ID: "a", TitleDisplay: "Aria", Developer: "Key", DurationTier: "中篇", SeriesName: "Sky", ReleaseDate: "2020.05.01", DurationHours: hours(20)},
		{ID: "b", TitleDisplay: "bloom", Developer: "Yuzu", DurationTier: "短篇", ReleaseDate: "2019-01-01", DurationHours: hours(6)},
		{ID: "c", TitleDisplay: "Canvas", Developer: "Key", DurationTier: "短篇", SeriesName: "Sky", Names: catalog.Names{Aliases: []string{"Hidden Alias"}}},
		{ID: "d", TitleDisplay: "delta", Developer: "Yuzu", DurationTier: "中篇", ReleaseDate: "not a date", DurationHours: hours(12)},
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		input    string
		expected SortKey
	}{
		{"release_date_desc", SortKey{Field: FieldReleaseDate, Direction: Desc}},
		{"duration_hours_asc", SortKey{Field: FieldDurationHours, Direction: Asc}},
		{"title_display_asc", DefaultSort},
		{"", DefaultSort},
		{"developer", SortKey{Field: Field{Kind: KindString, Name: "developer"}, Direction: Asc}},
		{"release_date_sideways", SortKey{Field: Field{Kind: KindString, Name: "release_date_sideways"}, Direction: Asc}},
		{"  Release_Date_DESC ", SortKey{Field: FieldReleaseDate, Direction: Desc}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSortKey(tt.input); got != tt.expected {
				t.Fatalf("ParseSortKey(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}

	if got := ParseSortKey("release_date_desc").String(); got != "release_date_desc" {
		t.Fatalf("String() = %q", got)
	}
}

func TestSortReleaseDate(t *testing.T) {
	records := []catalog.Record{
		{ID: "null"},
		{ID: "2020", ReleaseDate: "2020.05.01"},
		{ID: "2019", ReleaseDate: "2019-01-01"},
	}

	asc := Run(records, Criteria{Sort: SortKey{Field: FieldReleaseDate, Direction: Asc}})
	if got, want := ids(asc), []string{"2019", "2020", "null"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}

	desc := Run(records, Criteria{Sort: SortKey{Field: FieldReleaseDate, Direction: Desc}})
	if got, want := ids(desc), []string{"null", "2020", "2019"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("desc = %v, want %v", got, want)
	}
}

func TestSortDurationHours(t *testing.T) {
	records := []catalog.Record{
		{ID: "5", DurationHours: hours(5)},
		{ID: "null"},
		{ID: "2", DurationHours: hours(2)},
	}

	asc := Run(records, Criteria{Sort: SortKey{Field: FieldDurationHours, Direction: Asc}})
	if got, want := ids(asc), []string{"2", "5", "null"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("asc = %v, want %v", got, want)
	}

	desc := Run(records, Criteria{Sort: SortKey{Field: FieldDurationHours, Direction: Desc}})
	if got, want := ids(desc), []string{"null", "5", "2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("desc = %v, want %v", got, want)
	}
}

func TestSortIsStable(t *testing.T) {
	records := []catalog.Record{
		{ID: "1", TitleDisplay: "same"},
		{ID: "2", TitleDisplay: "Same"},
		{ID: "3", TitleDisplay: "SAME"},
		{ID: "4", TitleDisplay: "other"},
	}
	got := ids(Run(records, Criteria{Sort: DefaultSort}))
	want := []string{"4", "1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortUnknownFieldKeepsOrder(t *testing.T) {
	records := sample()
	got := ids(Run(records, Criteria{Sort: ParseSortKey("no_such_field_desc")}))
	if want := ids(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want input order %v", got, want)
	}
}

func TestSortByNamedStringField(t *testing.T) {
	got := ids(Run(sample(), Criteria{Sort: ParseSortKey("id_desc")}))
	if want := []string{"d", "c", "b", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRunFilters(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		expected []string
	}{
		{name: "no criteria", criteria: Criteria{}, expected: []string{"a", "b", "c", "d"}},
		{name: "developer", criteria: Criteria{Developer: "Key"}, expected: []string{"a", "c"}},
		{name: "tier", criteria: Criteria{DurationTier: "短篇"}, expected: []string{"b", "c"}},
		{name: "series", criteria: Criteria{SeriesName: "Sky"}, expected: []string{"a", "c"}},
		{name: "search is case-insensitive", criteria: Criteria{SearchTerm: "  BLOOM "}, expected: []string{"b"}},
		{name: "alias-only match", criteria: Criteria{SearchTerm: "hidden"}, expected: []string{"c"}},
		{name: "blank search is a no-op", criteria: Criteria{SearchTerm: "   "}, expected: []string{"a", "b", "c", "d"}},
		{name: "favorites only", criteria: Criteria{FavoritesOnly: true, Favorites: NewSet("d", "b")}, expected: []string{"b", "d"}},
		{name: "favorites only with nil set", criteria: Criteria{FavoritesOnly: true}, expected: []string{}},
		{name: "combined", criteria: Criteria{Developer: "Yuzu", DurationTier: "中篇"}, expected: []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Run(sample(), tt.criteria))
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Fatalf("Run() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunFilterCommutativity(t *testing.T) {
	records := sample()
	both := Run(records, Criteria{Developer: "Key", SeriesName: "Sky", SearchTerm: "a"})
	devFirst := Run(Run(records, Criteria{Developer: "Key"}), Criteria{SeriesName: "Sky", SearchTerm: "a"})
	seriesFirst := Run(Run(records, Criteria{SeriesName: "Sky", SearchTerm: "a"}), Criteria{Developer: "Key"})

	if diff := cmp.Diff(ids(both), ids(devFirst)); diff != "" {
		t.Fatalf("developer first differs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ids(both), ids(seriesFirst)); diff != "" {
		t.Fatalf("series first differs (-want +got):\n%s", diff)
	}
}

func TestRunIsIdempotentAndLeavesInputAlone(t *testing.T) {
	records := sample()
	c := Criteria{Sort: ParseSortKey("duration_hours_desc")}
	once := Run(records, c)
	twice := Run(once, c)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("Run not idempotent (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(sample(), records); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestParseReleaseDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2019-01-01", true},
		{"2020.05.01", true},
		{"2020/5/1", true},
		{"2021-07-01T10:00:00Z", true},
		{"2018", true},
		{"", false},
		{"soon", false},
		{"2020-13-40", false},
	}
	for _, tt := range tests {
		if _, ok := ParseReleaseDate(tt.input); ok != tt.ok {
			t.Errorf("ParseReleaseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestSearchSkipsPlaceholderTitles(t *testing.T) {
	records := catalog.Normalize([]catalog.RawRecord{
		catalog.NewRawRecord(`{"id": "x", "title_display": "Aria"}`),
		catalog.NewRawRecord(`{"id": "y", "title_display": "Bloom", "title": "Bloom Original"}`),
		catalog.NewRawRecord(`{"id": "z"}`),
	})

	if got := ids(Run(records, Criteria{SearchTerm: catalog.PlaceholderTitle})); len(got) != 0 {
		t.Fatalf("placeholder search matched %v", got)
	}
	if got, want := ids(Run(records, Criteria{SearchTerm: "original"})), []string{"y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortIgnoresNonFiniteHours(t *testing.T) {
	records := catalog.Normalize([]catalog.RawRecord{
		catalog.NewRawRecord(`{"id": "5", "duration_hours": 5}`),
		catalog.NewRawRecord(`{"id": "nan", "duration_hours": "NaN"}`),
		catalog.NewRawRecord(`{"id": "1", "duration_hours": 1}`),
		catalog.NewRawRecord(`{"id": "3", "duration_hours": "3"}`),
	})

	got := ids(Run(records, Criteria{Sort: ParseSortKey("duration_hours_asc")}))
	if want := []string{"1", "3", "5", "nan"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortIsStableForEveryFieldKind(t *testing.T) {
	// records with equal keys must keep their input order in both directions
	tests := []struct {
		name    string
		field   Field
		records []catalog.Record
	}{
		{
			name:  "equal strings",
			field: Field{Kind: KindString, Name: "developer"},
			records: []catalog.Record{
				{ID: "1", Developer: "Key"},
				{ID: "2", Developer: "key"},
				{ID: "3", Developer: "KEY"},
			},
		},
		{
			name:  "equal release dates",
			field: FieldReleaseDate,
			records: []catalog.Record{
				{ID: "1", ReleaseDate: "2020-05-01"},
				{ID: "2", ReleaseDate: "2020.05.01"},
				{ID: "3", ReleaseDate: "2020/5/1"},
			},
		},
		{
			name:  "invalid release dates",
			field: FieldReleaseDate,
			records: []catalog.Record{
				{ID: "1"},
				{ID: "2", ReleaseDate: "soon"},
				{ID: "3", ReleaseDate: "TBA"},
			},
		},
		{
			name:  "equal hours",
			field: FieldDurationHours,
			records: []catalog.Record{
				{ID: "1", DurationHours: hours(7)},
				{ID: "2", DurationHours: hours(7)},
				{ID: "3", DurationHours: hours(7)},
			},
		},
		{
			name:  "unknown hours",
			field: FieldDurationHours,
			records: []catalog.Record{
				{ID: "1"},
				{ID: "2"},
				{ID: "3"},
			},
		},
	}

	for _, tt := range tests {
		for _, dir := range []Direction{Asc, Desc} {
			t.Run(tt.name+"/"+dir.String(), func(t *testing.T) {
				got := ids(Run(tt.records, Criteria{Sort: SortKey{Field: tt.field, Direction: dir}}))
				if want := ids(tt.records); !reflect.DeepEqual(got, want) {
					t.Fatalf("got %v, want input order %v", got, want)
				}
			})
		}
	}
}
