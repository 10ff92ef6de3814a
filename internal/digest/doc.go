// Package digest renders a stored bulletin into the message that is mailed out:
// a title, an HTML table and a plain-text alternative.
//
// Rows are grouped by sponsorship and then by date type. Both groupings keep the
// order in which values first appear in the bulletin, and rows keep their
// original order within a group.
package digest
