package scraper

import (
	"strings"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
)

const (
	finalActionMarker = "<u>FINAL ACTION DATES"
	filingMarker      = "<u>DATES FOR FILING"
)

// Section is the classifier's view of one content section of a bulletin page:
// where its underlined headings sit and where its own tables sit, as byte offsets
// into the section's inner markup. Absent headings have offset -1.
type Section struct {
	FinalAt  int
	FilingAt int
	Tables   []int
}

// NewSection locates the heading markers in a section's inner markup.
// tableMarkup holds the outer markup of each of the section's own tables, in order.
func NewSection(markup string, tableMarkup []string) Section {
	s := Section{
		FinalAt:  strings.Index(markup, finalActionMarker),
		FilingAt: strings.Index(markup, filingMarker),
		Tables:   make([]int, 0, len(tableMarkup)),
	}

	from := 0
	for _, table := range tableMarkup {
		at := strings.Index(markup[from:], table)
		if at < 0 {
			s.Tables = append(s.Tables, from)
			continue
		}
		s.Tables = append(s.Tables, from+at)
		from += at + len(table)
	}
	return s
}

func (s Section) hasFinal() bool  { return s.FinalAt >= 0 }
func (s Section) hasFiling() bool { return s.FilingAt >= 0 }

// SelfDescribing reports whether the section names its own date type
func (s Section) SelfDescribing() bool {
	return s.hasFinal() || s.hasFiling()
}

// Classify assigns a date type to every table of every section. The result has one
// slice per section and one entry per table; an empty DateType means the table
// could not be classified and must be skipped.
//
// A section with its own heading is classified from it. A section without one takes
// the headings of the section just before it, which is the textual preamble naming
// the table that follows. With a single heading available, every table gets it.
// With both headings and a single table, a self-describing section takes the
// heading that comes first while a preamble's later heading wins, being the one
// closest to the table. With both headings and several tables in a self-describing
// section, each table takes the nearest heading above it.
func Classify(sections []Section) [][]bulletin.DateType {
	labels := make([][]bulletin.DateType, len(sections))
	for i := range sections {
		labels[i] = classifySection(sections, i)
	}
	return labels
}

func classifySection(sections []Section, i int) []bulletin.DateType {
	section := sections[i]
	labels := make([]bulletin.DateType, len(section.Tables))
	if len(section.Tables) == 0 {
		return labels
	}

	source, self := section, true
	if !section.SelfDescribing() {
		if i == 0 {
			return labels
		}
		source, self = sections[i-1], false
	}

	switch {
	case !source.hasFinal() && !source.hasFiling():
		// no heading anywhere: skip the section
	case !source.hasFiling():
		fill(labels, bulletin.DateFinal)
	case !source.hasFinal():
		fill(labels, bulletin.DateFiling)
	case len(labels) == 1:
		labels[0] = pickSingle(source, self)
	case self:
		for j, at := range section.Tables {
			labels[j] = nearestHeading(source, at)
		}
	}

	return labels
}

// pickSingle breaks the tie when both headings name a lone table
func pickSingle(source Section, self bool) bulletin.DateType {
	filingFirst := source.FilingAt < source.FinalAt
	if self == filingFirst {
		return bulletin.DateFiling
	}
	return bulletin.DateFinal
}

// nearestHeading returns the date type of the last heading placed before offset
func nearestHeading(s Section, offset int) bulletin.DateType {
	best, label := -1, bulletin.DateType("")
	if s.hasFinal() && s.FinalAt < offset && s.FinalAt > best {
		best, label = s.FinalAt, bulletin.DateFinal
	}
	if s.hasFiling() && s.FilingAt < offset && s.FilingAt > best {
		label = bulletin.DateFiling
	}
	return label
}

func fill(labels []bulletin.DateType, dt bulletin.DateType) {
	for i := range labels {
		labels[i] = dt
	}
}
