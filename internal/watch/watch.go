// Package watch streams the facepile of the active document to a terminal or
// as line-delimited JSON.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/internal/presence"
	"github.com/dyluth/docroom/internal/printer"
)

// OutputFormat selects how updates are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// TitleFunc maps a document id to its display title.
type TitleFunc func(documentID string) string

// Event is one line of JSON output.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title,omitempty"`
	Facepile   presence.Facepile `json:"facepile"`
}

// StreamPresence writes every facepile change until ctx is cancelled or
// updates is closed. Consecutive identical facepiles (heartbeats) are
// written once.
func StreamPresence(ctx context.Context, updates <-chan presence.Update, title TitleFunc, format OutputFormat, w io.Writer) error {
	var last *presence.Update
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if last != nil && sameFacepile(*last, u) {
				continue
			}
			last = &u

			if err := writeUpdate(w, u, title, format, time.Now()); err != nil {
				return err
			}
		}
	}
}

func writeUpdate(w io.Writer, u presence.Update, title TitleFunc, format OutputFormat, now time.Time) error {
	var name string
	if title != nil {
		name = title(u.DocumentID)
	}

	if format == OutputFormatJSON {
		data, err := json.Marshal(Event{
			Timestamp:  now.UTC(),
			DocumentID: u.DocumentID,
			Title:      name,
			Facepile:   u.Facepile,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal presence event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "[%s] %s\n", now.Format("15:04:05"), FormatFacepile(u, name)); err != nil {
		return fmt.Errorf("failed to write presence output: %w", err)
	}
	return nil
}

// FormatFacepile renders an update as a single line, e.g.
// "👥 Roadmap: AG Ava Gray, NW Noah Wren +3 more (5 active)".
func FormatFacepile(u presence.Update, title string) string {
	if title == "" {
		title = u.DocumentID
	}

	if len(u.Facepile.Shown) == 0 {
		return fmt.Sprintf("👥 %s: nobody here (%s)", title, u.Facepile.Label())
	}

	names := make([]string, len(u.Facepile.Shown))
	for i, id := range u.Facepile.Shown {
		names[i] = printer.Swatch(id.Color, identity.Initials(id.Name)) + " " + id.Name
	}

	line := fmt.Sprintf("👥 %s: %s", title, strings.Join(names, ", "))
	if more := u.Facepile.OverflowLabel(); more != "" {
		line += " " + more
	}
	return fmt.Sprintf("%s (%s)", line, u.Facepile.Label())
}

func sameFacepile(a, b presence.Update) bool {
	if a.DocumentID != b.DocumentID ||
		a.Facepile.TotalCount != b.Facepile.TotalCount ||
		a.Facepile.OverflowCount != b.Facepile.OverflowCount ||
		len(a.Facepile.Shown) != len(b.Facepile.Shown) {
		return false
	}
	for i := range a.Facepile.Shown {
		if a.Facepile.Shown[i] != b.Facepile.Shown[i] {
			return false
		}
	}
	return true
}
