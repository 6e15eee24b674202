package catalog

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// PlaceholderTitle is used when a record carries no usable title at all.
	PlaceholderTitle = "无标题"
	// UnknownDurationTier is the bucket for records without a known play time.
	UnknownDurationTier = "未知时长"
)

// RawRecord is one producer-defined catalog entry. Fields are looked up by
// path, so a record may be missing any of them.
type RawRecord struct {
	res gjson.Result
}

// NewRawRecord wraps a single JSON object.
func NewRawRecord(json string) RawRecord {
	return RawRecord{res: gjson.Parse(json)}
}

// RawRecordsFrom splits a JSON array into raw records. Anything that is not
// an array yields no records.
func RawRecordsFrom(arr gjson.Result) []RawRecord {
	if !arr.IsArray() {
		return nil
	}
	items := arr.Array()
	out := make([]RawRecord, 0, len(items))
	for _, it := range items {
		out = append(out, RawRecord{res: it})
	}
	return out
}

// Get returns the value at a gjson path.
func (r RawRecord) Get(path string) gjson.Result {
	return r.res.Get(path)
}

// Raw returns the original JSON text.
func (r RawRecord) Raw() string {
	return r.res.Raw
}

// Names groups the localized names of a game.
type Names struct {
	Japanese string   `json:"japanese,omitempty" yaml:"japanese,omitempty"`
	English  string   `json:"english,omitempty" yaml:"english,omitempty"`
	Chinese  string   `json:"chinese,omitempty" yaml:"chinese,omitempty"`
	Aliases  []string `json:"aliases" yaml:"aliases"`
}

// DownloadLink is one named download location.
type DownloadLink struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// RelatedWork points at a prequel, sequel, fan disc and so on.
type RelatedWork struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Record is the canonical shape of a game after normalization. Every field
// read by filtering and sorting has a deterministic default; an empty string
// means "absent" for the optional string fields.
type Record struct {
	ID            string `json:"id" yaml:"id"`
	TitleDisplay  string `json:"title_display" yaml:"title_display"`
	TitleOriginal string `json:"title_original" yaml:"title_original"`
	Names         Names  `json:"names" yaml:"names"`

	Developer     string        `json:"developer" yaml:"developer"`
	ReleaseDate   string        `json:"release_date" yaml:"release_date"`
	DurationTier  string        `json:"duration_tier" yaml:"duration_tier"`
	DurationHours *float64      `json:"duration_hours" yaml:"duration_hours"`
	DurationText  string        `json:"duration_str,omitempty" yaml:"duration_str,omitempty"`
	Platforms     []string      `json:"platforms" yaml:"platforms"`
	RelatedWorks  []RelatedWork `json:"related_works" yaml:"related_works"`

	SeriesName string `json:"series_name" yaml:"series_name"`
	SeriesTag  string `json:"series_tag,omitempty" yaml:"series_tag,omitempty"`

	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	CoverImage    string         `json:"cover_image,omitempty" yaml:"cover_image,omitempty"`
	Screenshots   []string       `json:"screenshots" yaml:"screenshots"`
	DownloadLinks []DownloadLink `json:"download_links" yaml:"download_links"`

	SourceFilename string `json:"source_filename,omitempty" yaml:"source_filename,omitempty"`
	Abbrlink       string `json:"abbrlink,omitempty" yaml:"abbrlink,omitempty"`
	ParseError     bool   `json:"parse_error" yaml:"parse_error"`
	ParseWarning   string `json:"parse_warning,omitempty" yaml:"parse_warning,omitempty"`
}

// StringField returns the value of a named string field, using the producer's
// snake_case names. ok is false for names that are not string fields.
func (r Record) StringField(name string) (value string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		return r.ID, true
	case "title_display":
		return r.TitleDisplay, true
	case "title_original", "title":
		return r.TitleOriginal, true
	case "developer":
		return r.Developer, true
	case "release_date":
		return r.ReleaseDate, true
	case "duration_tier":
		return r.DurationTier, true
	case "duration_str":
		return r.DurationText, true
	case "series_name":
		return r.SeriesName, true
	case "series_tag":
		return r.SeriesTag, true
	case "description":
		return r.Description, true
	case "cover_image":
		return r.CoverImage, true
	case "source_filename":
		return r.SourceFilename, true
	case "abbrlink":
		return r.Abbrlink, true
	case "parse_warning":
		return r.ParseWarning, true
	case "names.chinese":
		return r.Names.Chinese, true
	case "names.english":
		return r.Names.English, true
	case "names.japanese":
		return r.Names.Japanese, true
	}
	return "", false
}
