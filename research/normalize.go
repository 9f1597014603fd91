package research

import "strings"

const (
	titleSeparator     = "for:"
	titlePrefixNoise   = "Result for"
	defaultResultTitle = "No title"
)

// Normalize reshapes raw search records into research results tagged with
// source. Records carrying an error marker or lacking an http(s) url are
// dropped. It is pure: the same input always yields the same output.
func Normalize(records []RawRecord, source string) []ResearchResult {
	results, _ := normalize(records, source)
	return results
}

func normalize(records []RawRecord, source string) ([]ResearchResult, int) {
	results := make([]ResearchResult, 0, len(records))
	dropped := 0
	for _, rec := range records {
		result, ok := normalizeRecord(rec, source)
		if !ok {
			dropped++
			continue
		}
		results = append(results, result)
	}
	return results, dropped
}

func normalizeRecord(rec RawRecord, source string) (ResearchResult, bool) {
	if rec == nil || rec.HasError() {
		return ResearchResult{}, false
	}

	url := recordURL(rec)
	if !isHTTPURL(url) {
		return ResearchResult{}, false
	}

	title, ok := rec.String("title")
	if !ok {
		title = defaultResultTitle
	}
	content, _ := rec.String("content")
	timestamp, ok := rec.String("timestamp")
	if !ok {
		timestamp, _ = rec.String("published_date")
	}

	return ResearchResult{
		Title:     CleanTitle(title),
		Content:   content,
		URL:       url,
		Source:    source,
		Timestamp: timestamp,
	}, true
}

// recordURL prefers "url" and falls back to "link" when url is absent or empty.
func recordURL(rec RawRecord) string {
	if url, _ := rec.String("url"); url != "" {
		return url
	}
	link, _ := rec.String("link")
	return link
}

func isHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// CleanTitle keeps the part of title before the first "for:", removes any
// "Result for" noise and trims whitespace.
func CleanTitle(title string) string {
	if i := strings.Index(title, titleSeparator); i >= 0 {
		title = title[:i]
	}
	title = strings.ReplaceAll(title, titlePrefixNoise, "")
	return strings.TrimSpace(title)
}
