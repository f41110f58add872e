package pages

// Page is a single CMS page record as it moves between the utilities.
type Page struct {
	Title string // Page title, whitespace-trimmed
	Slug  string // URL-safe identifier within its page type
	URL   string // Public URL on the web host
	Text  string // Body, either markup or cleaned text depending on the stage
}

// Column names used in page CSV files.
const (
	ColTitle       = "title"
	ColSlug        = "slug"
	ColURL         = "url"
	ColText        = "text"
	ColCleanedText = "cleaned_text"
)

// Output schemas. Fetcher and cleaner keep the historical cleaned_text name;
// chunk shards use the canonical text column.
var (
	FetchColumns = []string{ColTitle, ColSlug, ColURL, ColCleanedText}
	CleanColumns = []string{ColTitle, ColCleanedText}
	ShardColumns = []string{ColTitle, ColText}
)

// TextAliases lists the accepted body column names, canonical first.
var TextAliases = []string{ColText, ColCleanedText}

func (p Page) field(col string) string {
	switch col {
	case ColTitle:
		return p.Title
	case ColSlug:
		return p.Slug
	case ColURL:
		return p.URL
	case ColText, ColCleanedText:
		return p.Text
	}
	return ""
}
