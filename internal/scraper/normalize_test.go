package scraper

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "08NOV15", "08NOV15"},
		{"bold and break tags", "<b>Family-<br/>Sponsored</b>", "Family-Sponsored"},
		{"break variants", "A<br>B<br />C", "ABC"},
		{"line breaks", "\r\n  F2A\n", "F2A"},
		{"entities", "GUATEMALA &amp; HONDURAS", "GUATEMALA & HONDURAS"},
		{"escaped tags", "&lt;b&gt;1st&lt;/b&gt;", "1st"},
		{"double escaped", "&amp;lt;b&amp;gt;C&amp;lt;/b&amp;gt;", "C"},
		{"other markup kept", "<i>Other</i> Workers", "<i>Other</i> Workers"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
