package metadata

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

const workshopItemURL = "https://steamcommunity.com/sharedfiles/filedetails/?id=%s"

// Fetcher scrapes the public Steam Workshop item page for the metadata
// frozen onto a Job at submit time (§3, §4.1 Metadata Fetch step). It
// deliberately does not use the Steam Web API: no API key is assumed to
// be configured (§6 Non-goals).
type Fetcher struct {
	client  *http.Client
	baseURL string
}

func New() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 15 * time.Second}, baseURL: workshopItemURL}
}

// newWithBaseURL points Fetch at an arbitrary "%s takes the item id" URL
// template, letting tests substitute an httptest.Server for the real
// Workshop page.
func newWithBaseURL(baseURL string) *Fetcher {
	f := New()
	f.baseURL = baseURL
	return f
}

// Fetch retrieves and parses the item page. A page that fails to parse or
// no longer exists yields Metadata{Valid: false} rather than an error;
// Submit rejects such an item as InvalidItem before any download starts
// (§4.1 edge case: unlisted or deleted item).
func (f *Fetcher) Fetch(itemID string) (models.Metadata, error) {
	url := fmt.Sprintf(f.baseURL, itemID)

	resp, err := f.client.Get(url)
	if err != nil {
		return models.Metadata{}, models.WrapAppError(models.ErrTransientFailure, "fetch workshop page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Metadata{Valid: false}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.Metadata{Valid: false}, nil
	}

	title := strings.TrimSpace(doc.Find(".workshopItemTitle").First().Text())
	if title == "" {
		return models.Metadata{Valid: false}, nil
	}

	author := strings.TrimSpace(doc.Find(".creatorsBlock .friendBlockContent").First().Text())
	author = strings.SplitN(author, "\n", 2)[0]

	preview, _ := doc.Find("#previewImage, #previewImageMain").First().Attr("src")

	appID := extractAppID(doc)
	declaredSize := extractDeclaredSize(doc)

	return models.Metadata{
		Title:         title,
		Author:        strings.TrimSpace(author),
		PreviewImage:  preview,
		DeclaredSize:  declaredSize,
		ApplicationID: appID,
		Valid:         true,
	}, nil
}

func extractAppID(doc *goquery.Document) string {
	href, ok := doc.Find("a.breadcrumb_home").First().Attr("href")
	if !ok {
		return ""
	}
	const marker = "/app/"
	idx := strings.Index(href, marker)
	if idx < 0 {
		return ""
	}
	rest := href[idx+len(marker):]
	end := strings.IndexAny(rest, "/?")
	if end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func extractDeclaredSize(doc *goquery.Document) int64 {
	var size int64
	doc.Find(".detailsStatRight").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !strings.HasSuffix(text, "MB") && !strings.HasSuffix(text, "KB") && !strings.HasSuffix(text, "GB") {
			return true
		}
		parsed, ok := parseHumanSize(text)
		if ok {
			size = parsed
			return false
		}
		return true
	})
	return size
}

func parseHumanSize(text string) (int64, bool) {
	var unit string
	var multiplier float64
	switch {
	case strings.HasSuffix(text, "GB"):
		unit, multiplier = "GB", 1024*1024*1024
	case strings.HasSuffix(text, "MB"):
		unit, multiplier = "MB", 1024*1024
	case strings.HasSuffix(text, "KB"):
		unit, multiplier = "KB", 1024
	default:
		return 0, false
	}
	numeric := strings.TrimSpace(strings.TrimSuffix(text, unit))
	numeric = strings.ReplaceAll(numeric, ",", "")
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, false
	}
	return int64(value * multiplier), true
}
