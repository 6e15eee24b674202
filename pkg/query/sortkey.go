package query

import (
	"strings"
)

// Direction is the ordering direction of a sort.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// FieldKind tags the comparison semantics of a sort field.
type FieldKind int

const (
	// KindString compares the named string field case-insensitively. It is
	// also the fallback for field names the engine does not know.
	KindString FieldKind = iota
	// KindReleaseDate parses release dates and pushes invalid ones to the end.
	KindReleaseDate
	// KindDurationHours compares hours numerically. Unknown hours sort like
	// invalid release dates.
	KindDurationHours
)

// Field is a sort field: a comparison kind plus the producer's field name.
type Field struct {
	Kind FieldKind
	Name string
}

var (
	FieldTitleDisplay  = Field{Kind: KindString, Name: "title_display"}
	FieldReleaseDate   = Field{Kind: KindReleaseDate, Name: "release_date"}
	FieldDurationHours = Field{Kind: KindDurationHours, Name: "duration_hours"}
)

// FieldByName resolves a field name. Unknown names become string fields
// that compare the record field of that name.
func FieldByName(name string) Field {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case FieldReleaseDate.Name:
		return FieldReleaseDate
	case FieldDurationHours.Name:
		return FieldDurationHours
	case "":
		return FieldTitleDisplay
	}
	return Field{Kind: KindString, Name: name}
}

// SortKey pairs a field with a direction.
type SortKey struct {
	Field     Field
	Direction Direction
}

// DefaultSort is title ascending.
var DefaultSort = SortKey{Field: FieldTitleDisplay, Direction: Asc}

// ParseSortKey decomposes values like "release_date_desc". The direction is
// the last underscore-separated token; anything but "desc" means ascending.
// A value without a direction token is treated as a field name sorted
// ascending.
func ParseSortKey(s string) SortKey {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort
	}
	i := strings.LastIndex(s, "_")
	if i < 0 {
		return SortKey{Field: FieldByName(s), Direction: Asc}
	}
	field, dir := s[:i], s[i+1:]
	switch dir {
	case "desc":
		return SortKey{Field: FieldByName(field), Direction: Desc}
	case "asc":
		return SortKey{Field: FieldByName(field), Direction: Asc}
	}
	return SortKey{Field: FieldByName(s), Direction: Asc}
}

// String renders the key back into the "field_direction" form.
func (k SortKey) String() string {
	name := k.Field.Name
	if name == "" {
		name = FieldTitleDisplay.Name
	}
	return name + "_" + k.Direction.String()
}

func (k SortKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SortKey) UnmarshalText(b []byte) error {
	*k = ParseSortKey(string(b))
	return nil
}
