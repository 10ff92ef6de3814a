package scraper

import (
	"testing"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const testBulletinURL = "https://travel.state.gov/content/travel/en/legal/visa-law0/visa-bulletin/2024/visa-bulletin-for-september-2024.html"

func TestParseBulletinFixture(t *testing.T) {
	page := ParseBulletin(loadFixture(t, "bulletin.html"), testBulletinURL, logger.Nop())

	if page.URL != testBulletinURL {
		t.Errorf("expected URL %q, got %q", testBulletinURL, page.URL)
	}
	if page.Period != testPeriod {
		t.Errorf("expected period %+v, got %+v", testPeriod, page.Period)
	}

	// 2x3 family final, 1x3 family filing, 2x2 employment final, 1x2 employment filing
	if len(page.CutOffDates) != 15 {
		t.Fatalf("expected 15 records, got %d", len(page.CutOffDates))
	}

	type group struct {
		sponsorship bulletin.Sponsorship
		dateType    bulletin.DateType
	}
	counts := make(map[group]int)
	for _, d := range page.CutOffDates {
		counts[group{d.Sponsorship, d.DateType}]++
		if d.Year != "2024" || d.Month != "September" {
			t.Errorf("record has wrong period: %+v", d)
		}
	}

	expected := map[group]int{
		{bulletin.SponsorFamily, final}:      6,
		{bulletin.SponsorFamily, filing}:     3,
		{bulletin.SponsorEmployment, final}:  4,
		{bulletin.SponsorEmployment, filing}: 2,
	}
	for g, want := range expected {
		if counts[g] != want {
			t.Errorf("expected %d %s/%s records, got %d", want, g.sponsorship, g.dateType, counts[g])
		}
	}

	first := page.CutOffDates[0]
	if first.VisaType != "F1" || first.VisaArea != "All Charge-ability Areas Except Those Listed" || first.VisaDate != "08NOV15" {
		t.Errorf("unexpected first record: %+v", first)
	}

	var found bool
	for _, d := range page.CutOffDates {
		if d.VisaArea == "EL SALVADOR GUATEMALA & HONDURAS" && d.VisaType == "Other Workers" {
			found = true
			if d.VisaDate != "Unavailable" {
				t.Errorf("expected Unavailable, got %q", d.VisaDate)
			}
		}
	}
	if !found {
		t.Error("expected a decoded EL SALVADOR GUATEMALA & HONDURAS record")
	}
}

func TestParseBulletinMissingParts(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		period  bulletin.Period
		records int
	}{
		{
			name:    "no title",
			markup:  `<div id="main"><div class="simple_richtextarea section"><u>FINAL ACTION DATES</u><table><tr><td>Family</td><td>A</td></tr><tr><td>F1</td><td>C</td></tr></table></div></div>`,
			period:  bulletin.Period{},
			records: 1,
		},
		{
			name:    "no sections",
			markup:  `<div id="main"><h1>Visa Bulletin For May 2025</h1><table><tr><td>x</td></tr></table></div>`,
			period:  bulletin.Period{Year: "2025", Month: "May"},
			records: 0,
		},
		{
			name:    "nested title",
			markup:  `<div id="main"><div class="header"><h1>Visa Bulletin For June 2025</h1></div></div>`,
			period:  bulletin.Period{Year: "2025", Month: "June"},
			records: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ParseBulletin(tt.markup, testBulletinURL, logger.Nop())
			if page.Period != tt.period {
				t.Errorf("expected period %+v, got %+v", tt.period, page.Period)
			}
			if page.CutOffDates == nil {
				t.Error("CutOffDates should never be nil")
			}
			if len(page.CutOffDates) != tt.records {
				t.Errorf("expected %d records, got %d", tt.records, len(page.CutOffDates))
			}
		})
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected bulletin.Period
	}{
		{"Visa Bulletin For September 2024", bulletin.Period{Year: "2024", Month: "September"}},
		{"VISA BULLETIN FOR OCTOBER 2024", bulletin.Period{Year: "2024", Month: "OCTOBER"}},
		{"Visa Bulletin For  May   2025 (revised)", bulletin.Period{Year: "2025", Month: "May"}},
		{"Visa Bulletin For March", bulletin.Period{Month: "March"}},
		{"", bulletin.Period{}},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ParseTitle(tt.title); got != tt.expected {
				t.Errorf("ParseTitle(%q) = %+v, expected %+v", tt.title, got, tt.expected)
			}
		})
	}
}
