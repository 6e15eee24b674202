package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// editMarker prefixes boilerplate "edit this page" lines that some source
// documents leak into descriptions.
const editMarker = "[编辑此页面]"

// Normalize maps raw catalog entries to canonical records. It never fails
// and never drops an entry; entries flagged with parse_error are kept with
// whatever fields could be recovered.
func Normalize(raw []RawRecord) []Record {
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizeRecord(r))
	}
	return out
}

// NormalizeRecord maps a single raw entry. Top-level keys win over the
// nested info.* block the producer also emits.
func NormalizeRecord(r RawRecord) Record {
	rec := Record{
		ID: str(r, "id"),
		Names: Names{
			Japanese: str(r, "names.japanese"),
			English:  str(r, "names.english"),
			Chinese:  str(r, "names.chinese"),
			Aliases:  list(r, "names.aliases"),
		},
		Developer:      firstNonEmpty(str(r, "developer"), str(r, "info.developer")),
		ReleaseDate:    firstNonEmpty(str(r, "release_date"), str(r, "info.release_date")),
		DurationText:   firstNonEmpty(str(r, "duration_str"), str(r, "info.duration_str")),
		Platforms:      firstNonEmptyList(list(r, "platforms"), list(r, "info.platforms")),
		RelatedWorks:   relatedWorks(r),
		SeriesName:     firstNonEmpty(str(r, "series_name"), str(r, "series")),
		SeriesTag:      str(r, "series_tag"),
		Description:    cleanDescription(str(r, "description")),
		CoverImage:     firstNonEmpty(str(r, "cover_image"), str(r, "cover")),
		Screenshots:    list(r, "screenshots"),
		DownloadLinks:  downloadLinks(r),
		SourceFilename: str(r, "source_filename"),
		Abbrlink:       str(r, "abbrlink"),
		ParseError:     r.Get("parse_error").Bool(),
		ParseWarning:   str(r, "parse_warning"),
	}
	if rec.ID == "" {
		rec.ID = SynthesizeID()
	}

	rec.TitleOriginal = firstNonEmpty(str(r, "title_original"), str(r, "title"))
	rec.TitleDisplay = firstNonEmpty(
		str(r, "title_display"),
		rec.Names.Chinese,
		rec.Names.English,
		rec.Names.Japanese,
		rec.TitleOriginal,
		PlaceholderTitle,
	)
	if rec.TitleOriginal == "" {
		rec.TitleOriginal = PlaceholderTitle
	}

	rec.DurationHours = hours(r, "duration_hours")
	if rec.DurationHours == nil {
		rec.DurationHours = hours(r, "info.duration_hours")
	}
	rec.DurationTier = firstNonEmpty(str(r, "duration_tier"), str(r, "info.duration_tier"))
	if rec.DurationTier == "" || (rec.DurationTier == UnknownDurationTier && rec.DurationHours != nil) {
		rec.DurationTier = TierForHours(rec.DurationHours)
	}
	return rec
}

// SynthesizeID makes a transient identifier for records the producer did not
// identify. It is random, so favorites keyed on it do not survive a reload.
func SynthesizeID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "unknown-id-" + token[:9]
}

// TierForHours buckets a play time the same way the catalog producer does.
func TierForHours(h *float64) string {
	if h == nil || !validHours(*h) {
		return UnknownDurationTier
	}
	switch v := *h; {
	case v < 5:
		return "超短篇"
	case v < 10:
		return "短篇"
	case v < 30:
		return "中篇"
	case v < 50:
		return "长篇"
	default:
		return "超长篇"
	}
}

// DurationTiers lists the known buckets from shortest to longest, followed by
// the unknown bucket.
var DurationTiers = []string{"超短篇", "短篇", "中篇", "长篇", "超长篇", UnknownDurationTier}

func str(r RawRecord, path string) string {
	return scalar(r.Get(path))
}

func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
	default:
		return ""
	}
	s := strings.TrimSpace(v.String())
	if strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

// list accepts either a JSON array of scalars or a comma separated string.
func list(r RawRecord, path string) []string {
	v := r.Get(path)
	out := []string{}
	if v.IsArray() {
		for _, it := range v.Array() {
			if s := scalar(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	for _, part := range strings.Split(scalar(v), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hours(r RawRecord, path string) *float64 {
	v := r.Get(path)
	var h float64
	switch v.Type {
	case gjson.Number:
		h = v.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		h = f
	default:
		return nil
	}
	if !validHours(h) {
		return nil
	}
	return &h
}

// validHours rejects negative and non-finite play times.
func validHours(h float64) bool {
	return h >= 0 && !math.IsInf(h, 0)
}

func relatedWorks(r RawRecord) []RelatedWork {
	v := r.Get("related_works")
	if !v.IsArray() {
		v = r.Get("info.related_works")
	}
	out := []RelatedWork{}
	v.ForEach(func(_, w gjson.Result) bool {
		name := scalar(w.Get("name"))
		if name != "" {
			out = append(out, RelatedWork{Type: scalar(w.Get("type")), Name: name})
		}
		return true
	})
	return out
}

func downloadLinks(r RawRecord) []DownloadLink {
	out := []DownloadLink{}
	r.Get("download_links").ForEach(func(_, l gjson.Result) bool {
		link := DownloadLink{
			Name:     scalar(l.Get("name")),
			URL:      scalar(l.Get("url")),
			Password: scalar(l.Get("password")),
		}
		if link.Name != "" || link.URL != "" {
			out = append(out, link)
		}
		return true
	})
	return out
}

func cleanDescription(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), editMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return []string{}
}
