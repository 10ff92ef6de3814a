package scraper

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const (
	recentBulletinsSelector = "#recent_bulletins"
	comingSoonText          = "Coming Soon"
)

var (
	monthPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)
	yearPattern  = regexp.MustCompile(`[0-9]{4}`)
)

// ParseLinks extracts one PageLink per entry of the index page's recent bulletins
// list, in document order. pageURL is the address the markup was fetched from and
// is used to resolve relative links. A page without the list yields an empty slice.
func ParseLinks(markup, pageURL string, log *logger.Logger) []bulletin.PageLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Info("index page is not parseable", logger.Fields{"url": pageURL, "error": err.Error()})
		return []bulletin.PageLink{}
	}
	return parseLinks(doc, pageURL, log)
}

func parseLinks(doc *goquery.Document, pageURL string, log *logger.Logger) []bulletin.PageLink {
	links := make([]bulletin.PageLink, 0, 2)

	container := doc.Find(recentBulletinsSelector).First()
	if container.Length() == 0 {
		log.Info("recent bulletins list not found", logger.Fields{"url": pageURL})
		return links
	}

	items := container.ChildrenFiltered("li")
	if items.Length() == 0 {
		// The list sometimes sits one level down, inside a <ul>
		items = container.Find("li")
	}

	items.Each(func(i int, item *goquery.Selection) {
		link := parseLinkItem(item, pageURL, log)
		log.Debug("bulletin link found", logger.Fields{
			"index": i,
			"type":  string(link.Type),
			"month": link.Month,
			"year":  link.Year,
			"url":   link.URL,
		})
		links = append(links, link)
	})

	return links
}

// parseLinkItem builds the record for one list entry
func parseLinkItem(item *goquery.Selection, pageURL string, log *logger.Logger) bulletin.PageLink {
	anchor := item.Find("a").First()
	source := anchor
	if anchor.Length() == 0 {
		source = item
	}
	text := strings.TrimSpace(source.Text())

	link := bulletin.PageLink{Type: bulletin.LinkCurrent}
	if strings.Contains(text, comingSoonText) {
		link.Type = bulletin.LinkNext
	} else {
		link.Month = uniqueMatch(monthPattern, text)
		link.Year = uniqueMatch(yearPattern, text)
		if link.Month == "" || link.Year == "" {
			log.Info("bulletin link text has no unambiguous month and year", logger.Fields{"text": text})
		}
	}

	href, _ := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if navigable(href) {
		link.URL = ResolveURL(pageURL, href)
	} else if link.Type == bulletin.LinkNext {
		// No target yet: the next bulletin has not been published
		link.Month, link.Year, link.URL = "", "", ""
	}

	return link
}

// uniqueMatch returns the pattern's match when there is exactly one, otherwise ""
func uniqueMatch(pattern *regexp.Regexp, text string) string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) != 1 {
		return ""
	}
	return matches[0]
}

func navigable(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}

// ResolveURL turns a link target into an absolute URL. Targets starting with
// "http" are returned unchanged. Anything else replaces the last path segment of
// pageURL, so "/content/foo.html" on "https://x.gov/a/b/bulletin.html" becomes
// "https://x.gov/a/b/content/foo.html".
func ResolveURL(pageURL, href string) string {
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href
	}

	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	resolved := *base
	resolved.Path = path.Join("/", path.Dir(base.Path), strings.TrimPrefix(ref.Path, "/"))
	resolved.RawPath = ""
	resolved.RawQuery = ref.RawQuery
	resolved.Fragment = ref.Fragment
	return resolved.String()
}
