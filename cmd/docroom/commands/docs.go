package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/docroom/internal/catalog"
	"github.com/dyluth/docroom/internal/printer"
	"github.com/dyluth/docroom/internal/resolver"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	docsQuery        string
	docsOutputFormat string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Browse and manage documents",
	Long: `Browse the document catalog and manage private documents.

Public documents are shared and read-only. Private documents live on this
device and can be created, renamed and deleted.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List public and private documents",
	Long: `List public and private documents. The active document is marked with *.

Output Formats:
  table - Human-readable table (default)
  json  - Single JSON object for programmatic processing

Examples:
  # Everything
  docroom docs list

  # Titles containing "road", any case
  docroom docs list --query road`,
	Args: cobra.NoArgs,
	RunE: runDocsList,
}

var docsCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a private document and open it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocsCreate,
}

var docsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a private document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocsRename,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a private document",
	Long: `Delete a private document. Deleting the open document opens the first
public document instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocsDelete,
}

func init() {
	docsListCmd.Flags().StringVarP(&docsQuery, "query", "q", "", "Only show titles containing this text")
	docsListCmd.Flags().StringVarP(&docsOutputFormat, "output", "o", "table", "Output format (table or json)")

	docsCmd.AddCommand(docsListCmd, docsCreateCmd, docsRenameCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

// docsListing is the JSON shape of docs list.
type docsListing struct {
	Active  string             `json:"active"`
	Public  []catalog.Document `json:"public"`
	Private []catalog.Document `json:"private"`
}

func runDocsList(cmd *cobra.Command, args []string) error {
	if docsOutputFormat != "table" && docsOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", docsOutputFormat),
			[]string{"Valid formats: table, json"},
		)
	}

	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.ws.Catalog().Search(docsQuery)
	active := s.ws.Active().ID

	if docsOutputFormat == "json" {
		data, err := json.MarshalIndent(docsListing{Active: active, Public: snap.Public, Private: snap.Private}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		printer.Println(string(data))
		return nil
	}

	docs := snap.All()
	if len(docs) == 0 {
		printer.Info("No documents match %q\n", strings.TrimSpace(docsQuery))
		return nil
	}
	return formatDocsTable(printer.Out, docs, active)
}

func formatDocsTable(w io.Writer, docs []catalog.Document, activeID string) error {
	table := tablewriter.NewWriter(w)
	table.Header("", "ID", "TITLE", "VISIBILITY")
	for _, d := range docs {
		mark := ""
		if d.ID == activeID {
			mark = "*"
		}
		if err := table.Append(mark, d.ID, d.Title, string(d.Visibility)); err != nil {
			return fmt.Errorf("failed to format documents: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render documents: %w", err)
	}
	return nil
}

func runDocsCreate(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) == 1 {
		title = strings.TrimSpace(args[0])
	}

	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.ws.Create(context.Background(), title)
	notice(err)

	printer.Success("Created %q (%s)\n", doc.Title, doc.ID)
	printer.Info("Now open: %s\n", doc.ID)
	return nil
}

func runDocsRename(cmd *cobra.Command, args []string) error {
	title := args[1]

	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := lookupPrivate(s, args[0], "renamed")
	if err != nil {
		return err
	}
	id := doc.ID

	notice(s.ws.Rename(context.Background(), id, title))
	printer.Success("Renamed %s to %q\n", id, title)
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := lookupPrivate(s, args[0], "deleted")
	if err != nil {
		return err
	}
	id := doc.ID

	wasActive := s.ws.Active().ID == id
	notice(s.ws.Delete(context.Background(), id))

	printer.Success("Deleted %q (%s)\n", doc.Title, id)
	if wasActive {
		printer.Info("Now open: %s\n", s.ws.Active().ID)
	}
	return nil
}

// lookupPrivate resolves a full or short id to a private document. Ids the
// catalog would silently ignore are rejected so the user learns why.
func lookupPrivate(s *session, input, verb string) (catalog.Document, error) {
	id, err := resolver.ResolveDocumentID(s.ws.Catalog().Snapshot(), input)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			return catalog.Document{}, printer.Error(
				fmt.Sprintf("ambiguous document id '%s'", input),
				fmt.Sprintf("It matches %d documents:\n%s", len(ambiguous.Matches), resolver.FormatAmbiguousError(ambiguous)),
				nil,
			)
		}
		return catalog.Document{}, printer.Error(
			fmt.Sprintf("document '%s' not found", input),
			"No public or private document has this id.",
			[]string{"List documents:\n  docroom docs list"},
		)
	}

	doc, _ := s.ws.Catalog().Get(id)
	if doc.Visibility != catalog.Private {
		return catalog.Document{}, printer.Error(
			fmt.Sprintf("document '%s' is public", id),
			fmt.Sprintf("Public documents are shared and cannot be %s.", verb),
			[]string{"Create a private document to edit:\n  docroom docs create"},
		)
	}
	return doc, nil
}
