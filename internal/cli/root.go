// Package cli implements the trr-admin commands: offline template
// validation and document preview.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "trr-admin",
		Short:         "traefik-route relay admin commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
