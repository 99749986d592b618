// Package catalog owns the document directory: the fixed public documents and
// the device-local private documents, plus the persisted active document id.
package catalog

import "strings"

// Visibility partitions the catalog. It never changes after creation.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Document is a catalog entry. Content lives in the editing engine, not here.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
}

// DefaultTitle is given to private documents created without a title.
const DefaultTitle = "Untitled"

// FirstRunTitle is the title of the private document seeded on first run.
const FirstRunTitle = "My First Note"

var publicDocuments = []Document{
	{ID: "public-welcome", Title: "Welcome to Notion-like Docs", Visibility: Public},
	{ID: "public-team-handbook", Title: "Team Handbook (Public)", Visibility: Public},
	{ID: "public-roadmap", Title: "Product Roadmap (Public)", Visibility: Public},
}

// PublicDocuments returns the fixed public catalog in display order.
func PublicDocuments() []Document {
	return cloneDocs(publicDocuments)
}

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	Public  []Document `json:"public"`
	Private []Document `json:"private"`
}

// All returns public ++ private, the order the resolver searches in.
func (s Snapshot) All() []Document {
	all := make([]Document, 0, len(s.Public)+len(s.Private))
	all = append(all, s.Public...)
	return append(all, s.Private...)
}

// Filter keeps documents whose title contains query, ignoring case and
// surrounding whitespace. An empty query keeps everything.
func (s Snapshot) Filter(query string) Snapshot {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Snapshot{Public: cloneDocs(s.Public), Private: cloneDocs(s.Private)}
	}
	match := func(docs []Document) []Document {
		out := make([]Document, 0, len(docs))
		for _, d := range docs {
			if strings.Contains(strings.ToLower(d.Title), q) {
				out = append(out, d)
			}
		}
		return out
	}
	return Snapshot{Public: match(s.Public), Private: match(s.Private)}
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}
