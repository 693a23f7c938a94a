package lineitem

import (
	"regexp"
	"strings"
)

var (
	// A quantity annotation that bled into the description field:
	// whitespace, an integer, an optional marker letter, then whatever
	// the OCR tacked on after it ("MILK 2 F 3.49" -> "MILK").
	trailingQtyBlock = regexp.MustCompile(`\s+\d+\s*[A-Za-z]?\s+\S.*$`)

	// A bare price or discount value at the end of the description,
	// with an optional trailing negative marker ("BREAD 2.99-").
	// The preceding character must be a letter so the unit price of a
	// "2 @ 1.75" annotation line is left alone.
	trailingAmount = regexp.MustCompile(`([A-Za-z])\s+\d+(?:\.\d+)?-?$`)
)

// CleanDescription strips OCR artifacts from a description: a trailing
// quantity block and a trailing bare amount. Case is preserved; only
// surrounding whitespace is trimmed when nothing matches.
func CleanDescription(text string) string {
	text = strings.TrimSpace(text)
	text = trailingQtyBlock.ReplaceAllString(text, "")
	text = trailingAmount.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// descriptionKey is the comparison form used during grouping. It is
// never stored.
func descriptionKey(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
