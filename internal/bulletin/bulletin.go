package bulletin

import "time"

// LinkType tells the current bulletin apart from the next month's placeholder
type LinkType string

const (
	LinkCurrent LinkType = "current"
	LinkNext    LinkType = "next"
)

// DateType is the cut-off regime a bulletin table describes.
// The zero value means the table could not be classified.
type DateType string

const (
	DateFinal  DateType = "final"
	DateFiling DateType = "filing"
)

// Sponsorship is the major table section a row belongs to.
// The zero value means the header row named neither section.
type Sponsorship string

const (
	SponsorFamily     Sponsorship = "family"
	SponsorEmployment Sponsorship = "employment"
)

// PageLink is one entry of the index page's recent bulletins list
type PageLink struct {
	Type  LinkType `json:"type"`
	Month string   `json:"month"`
	Year  string   `json:"year"`
	URL   string   `json:"url"`
}

// Period returns the publication period named by the link text
func (l PageLink) Period() Period {
	return Period{Year: l.Year, Month: l.Month}
}

// Resolvable reports whether the link leads to a detail page
func (l PageLink) Resolvable() bool {
	return l.URL != ""
}

// CutOffDate is a single cell of a bulletin table.
// Values are never modified after construction.
type CutOffDate struct {
	Year        string      `json:"year"`
	Month       string      `json:"month"`
	DateType    DateType    `json:"date_type"`
	Sponsorship Sponsorship `json:"sponsorship"`
	VisaType    string      `json:"visa_type"`
	VisaArea    string      `json:"visa_area"`
	VisaDate    string      `json:"visa_date"`
}

// Page is the parsed content of one bulletin detail page
type Page struct {
	Period      Period       `json:"period"`
	URL         string       `json:"url"`
	CutOffDates []CutOffDate `json:"cutoff_dates"`
}

// Artifact is the persisted form of a parsed bulletin
type Artifact struct {
	Period      Period       `json:"period"`
	URL         string       `json:"url"`
	SavedAt     time.Time    `json:"saved_at"`
	CutOffDates []CutOffDate `json:"cutoff_dates"`
}

// NewArtifact snapshots a parsed page under the given period
func NewArtifact(period Period, page Page, savedAt time.Time) Artifact {
	dates := make([]CutOffDate, len(page.CutOffDates))
	copy(dates, page.CutOffDates)
	return Artifact{
		Period:      period,
		URL:         page.URL,
		SavedAt:     savedAt.UTC(),
		CutOffDates: dates,
	}
}
