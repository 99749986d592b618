// Package resolver expands the short document id prefixes typed on the
// command line into full document ids.
package resolver

import (
	"fmt"
	"strings"

	"github.com/dyluth/docroom/internal/catalog"
)

// MinShortIDLength is the minimum prefix length accepted for a short id.
const MinShortIDLength = 6

// ResolveDocumentID returns the id of the single document that input names,
// either exactly or as a prefix of at least MinShortIDLength characters.
func ResolveDocumentID(snap catalog.Snapshot, input string) (string, error) {
	docs := snap.All()
	for _, d := range docs {
		if d.ID == input {
			return d.ID, nil
		}
	}

	if len(input) < MinShortIDLength {
		return "", &NotFoundError{ShortID: input}
	}

	var matches []string
	for _, d := range docs {
		if strings.HasPrefix(d.ID, input) {
			matches = append(matches, d.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: input}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: input, Matches: matches}
	}
}

// NotFoundError indicates no document matched.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no documents found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several documents share the prefix.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d documents", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists up to 10 matching ids for the user.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	shown := min(len(err.Matches), 10)
	for _, id := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}
	b.WriteString("\nUse a longer prefix to identify the document.")
	return b.String()
}

func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
