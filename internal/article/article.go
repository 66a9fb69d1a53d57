// Package article holds the canonical news record every source converges into
// and the normalizer that produces it.
package article

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// PlaceholderLinkTitle replaces a headline that is only a URL.
	PlaceholderLinkTitle = "관련 기사"
	// PlaceholderNoTitle replaces an empty headline.
	PlaceholderNoTitle = "제목 없음"
	// NoLink is the non-navigable url used when a source supplies no link.
	NoLink = "#"
	// DefaultSource is used when neither the item nor its adapter names an outlet.
	DefaultSource = "News"

	dateLayout = "2006.01.02"
)

// Article is the canonical five-field record served to the dashboard.
// Date is either empty or YYYY.MM.DD so string order equals chronological order.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// Raw is one item as an adapter read it from its upstream, before cleanup.
type Raw struct {
	Title   string
	Link    string
	Source  string
	Date    string
	Snippet string

	// FallbackSource labels the item when Source is empty.
	FallbackSource string
}

// KST is the zone dates are rendered in.
var KST = time.FixedZone("KST", 9*60*60)

var (
	urlTitle   = regexp.MustCompile(`(?i)^https?://\S+$`)
	canonical  = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
	dateSuffix = regexp.MustCompile(`[.\s]+$`)
	// a '<' that opens a real tag or comment
	tagStart = regexp.MustCompile(`^(?:</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>|<!--)`)
)

// timestamped layouts are converted to KST before formatting; zone-less ones are read as KST
var timestamped = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// calendar layouts are plain dates taken as-is
var calendar = []string{
	"2006.01.02",
	"2006-01-02",
	"2006/01/02",
	"2006.1.2",
	"2006-1-2",
	"2006. 1. 2",
	"2006년 1월 2일",
}

// Normalize converts one raw item into an Article.
func Normalize(r Raw) Article {
	a := Article{
		Title:   StripHTML(r.Title),
		URL:     strings.TrimSpace(r.Link),
		Source:  StripHTML(r.Source),
		Date:    NormalizeDate(r.Date),
		Snippet: StripHTML(r.Snippet),
	}

	switch {
	case a.Title == "":
		a.Title = PlaceholderNoTitle
	case urlTitle.MatchString(a.Title):
		a.Title = PlaceholderLinkTitle
	}

	if a.URL == "" {
		a.URL = NoLink
	}

	if a.Source == "" {
		a.Source = strings.TrimSpace(r.FallbackSource)
	}
	if a.Source == "" {
		a.Source = DefaultSource
	}

	return a
}

// StripHTML removes markup, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(escapeStrayLT(s)))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	text := doc.Text()

	// upstreams sometimes escape twice (&amp;quot;)
	if strings.Contains(text, "&") {
		text = entityReplacer.Replace(text)
	}
	return strings.Join(strings.Fields(text), " ")
}

// escapeStrayLT escapes every '<' that does not open a tag, so decoded
// text such as "A<B" survives the HTML parser.
func escapeStrayLT(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && !tagStart.MatchString(s[i:]) {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

var entityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// NormalizeDate renders any recognised date as YYYY.MM.DD, or "" when it cannot.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if canonical.MatchString(s) {
		if _, err := time.Parse(dateLayout, s); err != nil {
			return ""
		}
		return s
	}

	for _, layout := range timestamped {
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return t.In(KST).Format(dateLayout)
		}
	}

	plain := dateSuffix.ReplaceAllString(s, "")
	for _, layout := range calendar {
		if t, err := time.Parse(layout, plain); err == nil {
			return t.Format(dateLayout)
		}
	}
	return ""
}

// DisplayDate shortens a canonical date to MM.DD for cards. Other values pass through.
func DisplayDate(date string) string {
	if canonical.MatchString(date) {
		return date[5:]
	}
	return date
}
