package commands

import (
	"context"

	"github.com/dyluth/docroom/internal/printer"
	"github.com/dyluth/docroom/internal/resolver"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Make a document the active one",
	Long: `Make a document the active one. Unique id prefixes of at least 6
characters are accepted. An id that matches no document opens the first
public document.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	requested := args[0]
	if id, err := resolver.ResolveDocumentID(s.ws.Catalog().Snapshot(), requested); err == nil {
		requested = id
	}

	doc, err := s.ws.Select(context.Background(), requested)
	if err != nil {
		return err
	}

	if doc.ID != requested {
		printer.Warning("No document %s, opened %s instead\n", args[0], doc.ID)
	}
	printer.Success("Opened %q (%s, %s)\n", doc.Title, doc.ID, doc.Visibility)
	return nil
}
