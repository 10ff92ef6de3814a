package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const (
	titleSelector   = "#main > h1"
	sectionSelector = "div.simple_richtextarea.section"
	titlePrefix     = "Visa Bulletin For "
)

// ParseBulletin extracts every classified table of a bulletin detail page.
// pageURL is recorded on the result only.
func ParseBulletin(markup, pageURL string, log *logger.Logger) bulletin.Page {
	page := bulletin.Page{URL: pageURL, CutOffDates: []bulletin.CutOffDate{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Info("bulletin page is not parseable", logger.Fields{"url": pageURL, "error": err.Error()})
		return page
	}

	page.Period = parseTitle(doc, log)

	sections := doc.Find(sectionSelector)
	if sections.Length() == 0 {
		log.Info("bulletin page has no content sections", logger.Fields{"url": pageURL})
		return page
	}

	views := make([]Section, sections.Length())
	tables := make([][]*goquery.Selection, sections.Length())
	sections.Each(func(i int, section *goquery.Selection) {
		own := section.ChildrenFiltered("table")
		outer := make([]string, 0, own.Length())
		own.Each(func(_ int, table *goquery.Selection) {
			markup, _ := goquery.OuterHtml(table)
			outer = append(outer, markup)
			tables[i] = append(tables[i], table)
		})
		views[i] = NewSection(innerHTML(section), outer)
	})

	for i, labels := range Classify(views) {
		for j, dateType := range labels {
			if dateType == "" {
				log.Info("skipping table without a date type heading", logger.Fields{
					"url":     pageURL,
					"section": i,
					"table":   j,
				})
				continue
			}
			dates := ExtractTable(tables[i][j], page.Period, dateType)
			page.CutOffDates = append(page.CutOffDates, dates...)
		}
	}

	log.Debug("bulletin page parsed", logger.Fields{
		"url":      pageURL,
		"period":   page.Period.String(),
		"sections": len(views),
		"records":  len(page.CutOffDates),
	})

	return page
}

func parseTitle(doc *goquery.Document, log *logger.Logger) bulletin.Period {
	heading := doc.Find(titleSelector).First()
	if heading.Length() == 0 {
		heading = doc.Find("#main h1").First()
	}
	if heading.Length() == 0 {
		log.Info("bulletin title not found", nil)
		return bulletin.Period{}
	}

	title := Normalize(innerHTML(heading))
	period := ParseTitle(title)
	if !period.Valid() {
		log.Info("bulletin title has no month and year", logger.Fields{"title": title})
	}
	return period
}

// ParseTitle reads the period from a "Visa Bulletin For <Month> <Year>" title.
// The first two words after the prefix are taken as they are.
func ParseTitle(title string) bulletin.Period {
	rest := title
	if len(rest) >= len(titlePrefix) && strings.EqualFold(rest[:len(titlePrefix)], titlePrefix) {
		rest = rest[len(titlePrefix):]
	}

	var period bulletin.Period
	words := strings.Fields(rest)
	if len(words) > 0 {
		period.Month = words[0]
	}
	if len(words) > 1 {
		period.Year = words[1]
	}
	return period
}
