// Package detail assembles the labeled sections shown for a single game.
package detail

import (
	"bytes"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Section keys, in display order.
const (
	SectionNames       = "names"
	SectionInfo        = "info"
	SectionDescription = "description"
	SectionScreenshots = "screenshots"
	SectionDownloads   = "downloads"
	SectionDiagnostics = "diagnostics"
)

const (
	NoDescription    = "暂无简介。"
	UnnamedLinkLabel = "下载链接"
	notAvailable     = "N/A"
)

// Entry is one labeled line of a section.
type Entry struct {
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

type Section struct {
	Key     string  `json:"key" yaml:"key"`
	Title   string  `json:"title" yaml:"title"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// View is everything a renderer needs for the detail of one record.
type View struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	CoverImage      string    `json:"cover_image,omitempty" yaml:"cover_image,omitempty"`
	Sections        []Section `json:"sections" yaml:"sections"`
	DescriptionHTML string    `json:"description_html,omitempty" yaml:"description_html,omitempty"`
}

// Section returns the section with key, if present.
func (v View) Section(key string) (Section, bool) {
	for _, s := range v.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Title picks the detail heading: localized names first, then the card
// title, then the original title.
func Title(r catalog.Record) string {
	for _, s := range []string{r.Names.Chinese, r.Names.English, r.Names.Japanese, r.TitleDisplay, r.TitleOriginal} {
		if s != "" {
			return s
		}
	}
	return catalog.PlaceholderTitle
}

// Assemble builds the detail view of r. Empty sections are left out.
func Assemble(r catalog.Record) View {
	title := Title(r)
	v := View{ID: r.ID, Title: title, CoverImage: r.CoverImage}

	add := func(key, heading string, entries []Entry) {
		if len(entries) > 0 {
			v.Sections = append(v.Sections, Section{Key: key, Title: heading, Entries: entries})
		}
	}

	add(SectionNames, "名称", names(r, title))
	add(SectionInfo, "基本信息", info(r))

	switch {
	case strings.TrimSpace(r.Description) != "":
		add(SectionDescription, "游戏简介", []Entry{{Value: r.Description}})
		v.DescriptionHTML = RenderDescription(r.Description)
	case !r.ParseError:
		add(SectionDescription, "游戏简介", []Entry{{Value: NoDescription}})
	}

	var shots []Entry
	for _, u := range r.Screenshots {
		if u != "" {
			shots = append(shots, Entry{URL: u})
		}
	}
	add(SectionScreenshots, "游戏截图", shots)

	var links []Entry
	for _, l := range r.DownloadLinks {
		label := l.Name
		if label == "" {
			label = LinkLabel(l.URL)
		}
		links = append(links, Entry{Label: label, URL: l.URL, Password: l.Password})
	}
	add(SectionDownloads, "下载链接", links)

	add(SectionDiagnostics, "诊断信息", diagnostics(r))
	return v
}

func names(r catalog.Record, title string) []Entry {
	var out []Entry
	if r.Names.Japanese != "" && r.Names.Japanese != title {
		out = append(out, Entry{Label: "日文名", Value: r.Names.Japanese})
	}
	if r.Names.English != "" && r.Names.English != title {
		out = append(out, Entry{Label: "英文名", Value: r.Names.English})
	}
	if r.Names.Chinese != "" && r.Names.Chinese != title {
		out = append(out, Entry{Label: "中文名", Value: r.Names.Chinese})
	}
	if len(r.Names.Aliases) > 0 {
		out = append(out, Entry{Label: "别名", Value: strings.Join(r.Names.Aliases, ", ")})
	}
	return out
}

func info(r catalog.Record) []Entry {
	var out []Entry
	if r.Developer != "" {
		out = append(out, Entry{Label: "开发商", Value: r.Developer})
	}
	if r.ReleaseDate != "" {
		out = append(out, Entry{Label: "发售日期", Value: r.ReleaseDate})
	}
	if d := Duration(r); d != "" {
		out = append(out, Entry{Label: "时长", Value: d})
	}
	if len(r.Platforms) > 0 {
		out = append(out, Entry{Label: "平台", Value: strings.Join(r.Platforms, ", ")})
	}
	if r.SeriesName != "" {
		s := r.SeriesName
		if r.SeriesTag != "" {
			s += " (" + r.SeriesTag + ")"
		}
		out = append(out, Entry{Label: "系列", Value: s})
	}
	for _, w := range r.RelatedWorks {
		out = append(out, Entry{Label: "相关作品", Value: w.Type + "： " + w.Name})
	}
	return out
}

// Duration renders the play time: the original text when present, else the
// hours. The tier is appended unless it is unknown.
func Duration(r catalog.Record) string {
	d := r.DurationText
	if d == "" && r.DurationHours != nil {
		d = strconv.FormatFloat(*r.DurationHours, 'f', -1, 64) + "h"
	}
	if d == "" {
		return ""
	}
	if r.DurationTier != "" && r.DurationTier != catalog.UnknownDurationTier {
		d += " (" + r.DurationTier + ")"
	}
	return d
}

func diagnostics(r catalog.Record) []Entry {
	var out []Entry
	if r.ParseError {
		out = append(out, Entry{Label: "严重错误", Value: strings.TrimSpace("此游戏元数据解析可能不完整或失败。 " + r.ParseWarning)})
	} else if r.ParseWarning != "" {
		out = append(out, Entry{Label: "解析警告", Value: r.ParseWarning})
	}
	out = append(out,
		Entry{Label: "源文件", Value: orNA(r.SourceFilename)},
		Entry{Label: "Abbrlink", Value: orNA(r.Abbrlink)},
		Entry{Label: "ID", Value: orNA(r.ID)},
	)
	return out
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// LinkLabel names an unnamed download link after the registrable domain of
// its URL, e.g. "pan.baidu.com/s/x" -> "baidu.com".
func LinkLabel(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return UnnamedLinkLabel
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil || domain == "" {
		return host
	}
	return domain
}

// RenderDescription turns newline-separated paragraphs into HTML with hard
// line breaks. Inline markup such as emphasis and links is rendered, but
// block syntax is not: a line starting with "#", "-" or "1." stays a plain
// line of its paragraph. Raw HTML in the source is not passed through.
func RenderDescription(desc string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(escapeBlocks(desc)), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// blockMarkers open a block element when they start a line.
const blockMarkers = "#-*+>=_|`~<"

// escapeBlocks backslash-escapes whatever would make a line open a block
// element, and drops leading indentation so nothing becomes a code block.
func escapeBlocks(desc string) string {
	lines := strings.Split(desc, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		switch {
		case line == "":
		case strings.IndexByte(blockMarkers, line[0]) >= 0:
			line = "\\" + line
		default:
			// ordered list items: up to nine digits then "." or ")"
			n := 0
			for n < len(line) && n < 10 && line[n] >= '0' && line[n] <= '9' {
				n++
			}
			if n > 0 && n < 10 && n < len(line) && (line[n] == '.' || line[n] == ')') {
				line = line[:n] + "\\" + line[n:]
			}
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
