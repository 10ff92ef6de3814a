package digest

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownLabel = "Unknown"

// Columns is the header row shared by the HTML and text forms
var Columns = []string{"Sponsor Type", "Date Type", "Visa Type", "Visa Area", "Visa Date"}

// Digest is a rendered bulletin ready to be sent
type Digest struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
	Text  string `json:"text"`
}

// Group holds the rows sharing a sponsorship and date type
type Group struct {
	Sponsorship bulletin.Sponsorship  `json:"sponsorship"`
	DateType    bulletin.DateType     `json:"date_type"`
	Dates       []bulletin.CutOffDate `json:"dates"`
}

// Title returns the subject line for a period, e.g. "Visa Bulletin - September,2024"
func Title(period bulletin.Period) string {
	return fmt.Sprintf("Visa Bulletin - %s,%s", period.Month, period.Year)
}

// Render builds the digest of an artifact
func Render(artifact bulletin.Artifact) (Digest, error) {
	groups := GroupDates(artifact.CutOffDates)

	htmlBody, err := renderHTML(groups)
	if err != nil {
		return Digest{}, fmt.Errorf("rendering html: %w", err)
	}

	textBody, err := renderText(groups)
	if err != nil {
		return Digest{}, fmt.Errorf("rendering text: %w", err)
	}

	return Digest{
		Title: Title(artifact.Period),
		HTML:  htmlBody,
		Text:  textBody,
	}, nil
}

// GroupDates splits records by sponsorship, then by date type
func GroupDates(dates []bulletin.CutOffDate) []Group {
	type key struct {
		sponsorship bulletin.Sponsorship
		dateType    bulletin.DateType
	}

	var sponsorships []bulletin.Sponsorship
	dateTypes := make(map[bulletin.Sponsorship][]bulletin.DateType)
	rows := make(map[key][]bulletin.CutOffDate)

	for _, d := range dates {
		if _, seen := dateTypes[d.Sponsorship]; !seen {
			sponsorships = append(sponsorships, d.Sponsorship)
			dateTypes[d.Sponsorship] = nil
		}
		k := key{d.Sponsorship, d.DateType}
		if _, seen := rows[k]; !seen {
			dateTypes[d.Sponsorship] = append(dateTypes[d.Sponsorship], d.DateType)
		}
		rows[k] = append(rows[k], d)
	}

	groups := make([]Group, 0, len(rows))
	for _, s := range sponsorships {
		for _, dt := range dateTypes[s] {
			groups = append(groups, Group{
				Sponsorship: s,
				DateType:    dt,
				Dates:       rows[key{s, dt}],
			})
		}
	}
	return groups
}

// Label formats an enum value for display: "family" becomes "Family"
func Label(value string) string {
	if strings.TrimSpace(value) == "" {
		return unknownLabel
	}
	return cases.Title(language.English).String(value)
}

func row(d bulletin.CutOffDate) []string {
	return []string{
		Label(string(d.Sponsorship)),
		Label(string(d.DateType)),
		d.VisaType,
		d.VisaArea,
		d.VisaDate,
	}
}

func renderHTML(groups []Group) (string, error) {
	tbody := element(atom.Tbody)
	tbody.AppendChild(tableRow(atom.Th, Columns))
	for _, g := range groups {
		for _, d := range g.Dates {
			tbody.AppendChild(tableRow(atom.Td, row(d)))
		}
	}

	table := element(atom.Table)
	table.Attr = []html.Attribute{{Key: "border", Val: "1"}}
	table.AppendChild(tbody)

	body := element(atom.Body)
	body.AppendChild(table)
	doc := element(atom.Html)
	doc.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func tableRow(cell atom.Atom, values []string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		c := element(cell)
		c.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		tr.AppendChild(c)
	}
	return tr
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func renderText(groups []Group) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(Columns, "\t"))
	for _, g := range groups {
		for _, d := range g.Dates {
			fmt.Fprintln(w, strings.Join(row(d), "\t"))
		}
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
