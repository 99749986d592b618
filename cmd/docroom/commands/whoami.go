package commands

import (
	"context"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/internal/printer"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity this device appears as",
	Long: `Show the identity other participants see in the facepile.

The identity is created on first use and kept for every later session on
this device.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := openSession(context.Background(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	id := s.ws.Identity()
	printer.Info("%s %s\n", printer.Swatch(id.Color, identity.Initials(id.Name)), id.Name)
	printer.Muted("  id:    %s\n  color: %s\n", id.ID, id.Color)
	return nil
}
