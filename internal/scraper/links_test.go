package scraper

import (
	"os"
	"testing"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const testIndexURL = "https://travel.state.gov/content/visas/en/law-and-policy/bulletin.html"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func TestParseLinksFixture(t *testing.T) {
	links := ParseLinks(loadFixture(t, "index.html"), testIndexURL, logger.Nop())

	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	current := links[0]
	if current.Type != bulletin.LinkCurrent {
		t.Errorf("expected first link to be current, got %q", current.Type)
	}
	if current.Month != "September" || current.Year != "2024" {
		t.Errorf("expected September 2024, got %q %q", current.Month, current.Year)
	}
	wantURL := "https://travel.state.gov/content/visas/en/law-and-policy/content/travel/en/legal/visa-law0/visa-bulletin/2024/visa-bulletin-for-september-2024.html"
	if current.URL != wantURL {
		t.Errorf("expected URL %q, got %q", wantURL, current.URL)
	}

	next := links[1]
	if next.Type != bulletin.LinkNext {
		t.Errorf("expected second link to be next, got %q", next.Type)
	}
	if next.Month != "" || next.Year != "" || next.URL != "" {
		t.Errorf("expected unpublished next link to be empty, got %+v", next)
	}

	if got := bulletin.EvaluateNext(links); got != bulletin.NextPending {
		t.Errorf("expected availability pending, got %v", got)
	}
}

func TestParseLinksNextPublished(t *testing.T) {
	links := ParseLinks(loadFixture(t, "index_next_published.html"), testIndexURL, logger.Nop())

	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].URL != "https://travel.state.gov/content/travel/en/legal/visa-law0/visa-bulletin/2024/visa-bulletin-for-september-2024.html" {
		t.Errorf("absolute URL should pass through, got %q", links[0].URL)
	}
	if links[1].Type != bulletin.LinkNext || links[1].URL == "" {
		t.Errorf("expected resolvable next link, got %+v", links[1])
	}
	if got := bulletin.EvaluateNext(links); got != bulletin.NextAvailable {
		t.Errorf("expected availability available, got %v", got)
	}
}

func TestParseLinksItems(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected []bulletin.PageLink
	}{
		{
			name:     "missing container",
			markup:   `<div id="main"><ul><li><a href="/a.html">May 2024</a></li></ul></div>`,
			expected: []bulletin.PageLink{},
		},
		{
			name:   "nested list",
			markup: `<div id="recent_bulletins"><ul><li><a href="https://x.gov/may.html">May 2024</a></li></ul></div>`,
			expected: []bulletin.PageLink{
				{Type: bulletin.LinkCurrent, Month: "May", Year: "2024", URL: "https://x.gov/may.html"},
			},
		},
		{
			name:   "ambiguous text leaves fields empty",
			markup: `<ul id="recent_bulletins"><li><a href="https://x.gov/a.html">May June 2024 2025</a></li></ul>`,
			expected: []bulletin.PageLink{
				{Type: bulletin.LinkCurrent, URL: "https://x.gov/a.html"},
			},
		},
		{
			name:   "item without anchor",
			markup: `<ul id="recent_bulletins"><li>March 2023</li></ul>`,
			expected: []bulletin.PageLink{
				{Type: bulletin.LinkCurrent, Month: "March", Year: "2023"},
			},
		},
		{
			name: "placeholder targets are not navigable",
			markup: `<ul id="recent_bulletins">
				<li><a href="#">Coming Soon</a></li>
				<li><a href="javascript:void(0)">Coming Soon</a></li>
			</ul>`,
			expected: []bulletin.PageLink{
				{Type: bulletin.LinkNext},
				{Type: bulletin.LinkNext},
			},
		},
		{
			name: "second list item does not inherit the first",
			markup: `<ul id="recent_bulletins">
				<li><a href="https://x.gov/a.html">April 2024</a></li>
				<li><a href="https://x.gov/b.html">Archive</a></li>
			</ul>`,
			expected: []bulletin.PageLink{
				{Type: bulletin.LinkCurrent, Month: "April", Year: "2024", URL: "https://x.gov/a.html"},
				{Type: bulletin.LinkCurrent, Month: "Archive", URL: "https://x.gov/b.html"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLinks(tt.markup, testIndexURL, logger.Nop())
			if got == nil {
				t.Fatal("ParseLinks should never return nil")
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d links, got %d: %+v", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("link %d = %+v, expected %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		pageURL  string
		href     string
		expected string
	}{
		{
			name:     "absolute passes through",
			pageURL:  "https://a.gov/x/y.html",
			href:     "https://b.gov/z.html",
			expected: "https://b.gov/z.html",
		},
		{
			name:     "rooted path replaces last segment",
			pageURL:  "https://x.gov/a/b/bulletin.html",
			href:     "/content/foo.html",
			expected: "https://x.gov/a/b/content/foo.html",
		},
		{
			name:     "relative path replaces last segment",
			pageURL:  "https://x.gov/a/b/bulletin.html",
			href:     "foo.html?lang=en",
			expected: "https://x.gov/a/b/foo.html?lang=en",
		},
		{
			name:     "page at root",
			pageURL:  "https://x.gov/bulletin.html",
			href:     "/foo.html",
			expected: "https://x.gov/foo.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.pageURL, tt.href); got != tt.expected {
				t.Errorf("ResolveURL(%q, %q) = %q, expected %q", tt.pageURL, tt.href, got, tt.expected)
			}
		})
	}
}
