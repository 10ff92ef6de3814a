package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"golang.org/x/net/html"
)

const cellSelector = "td, th"

// ExtractTable turns a classified bulletin table into cut-off dates. Row 0 is the
// header: its first cell names the sponsorship and the remaining cells name the
// areas. Every later row yields one record per cell after the first, which holds
// the visa category. Rows without cells and cells past the header's width are
// skipped.
func ExtractTable(table *goquery.Selection, period bulletin.Period, dateType bulletin.DateType) []bulletin.CutOffDate {
	rows := tableRows(table)
	if rows.Length() == 0 {
		return nil
	}

	header := rows.First().ChildrenFiltered(cellSelector)
	if header.Length() == 0 {
		return nil
	}

	sponsorship := sponsorshipOf(header.First())
	areas := make([]string, header.Length())
	header.Each(func(c int, cell *goquery.Selection) {
		areas[c] = Normalize(innerHTML(cell))
	})

	dates := make([]bulletin.CutOffDate, 0, (rows.Length()-1)*(len(areas)-1))
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered(cellSelector)
		if cells.Length() == 0 {
			return
		}

		visaType := Normalize(innerHTML(cells.First()))
		cells.Each(func(c int, cell *goquery.Selection) {
			if c == 0 || c >= len(areas) {
				return
			}
			dates = append(dates, bulletin.CutOffDate{
				Year:        period.Year,
				Month:       period.Month,
				DateType:    dateType,
				Sponsorship: sponsorship,
				VisaType:    visaType,
				VisaArea:    areas[c],
				VisaDate:    Normalize(innerHTML(cell)),
			})
		})
	})

	return dates
}

// tableRows returns the table's own rows in document order, thead rows included,
// leaving out rows of nested tables
func tableRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").IsSelection(table)
	})
}

// sponsorshipOf reads the header's first cell. "Family" anywhere in the cell wins;
// otherwise the cell's first non-blank text must mention "Employ".
func sponsorshipOf(cell *goquery.Selection) bulletin.Sponsorship {
	if strings.Contains(innerHTML(cell), "Family") {
		return bulletin.SponsorFamily
	}
	if strings.Contains(firstText(cell), "Employ") {
		return bulletin.SponsorEmployment
	}
	return ""
}

func firstText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}

	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			found = n.Data
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(sel.Get(0))
	return found
}

func innerHTML(sel *goquery.Selection) string {
	markup, err := sel.Html()
	if err != nil {
		return ""
	}
	return markup
}
