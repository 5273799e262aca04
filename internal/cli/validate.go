package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/routeops/traefik-route-relay/pkg/routecfg"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a route template file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := routecfg.Load(file)
			if err != nil {
				return err
			}
			if err := tpl.Validate(); err != nil {
				return fmt.Errorf("route template %s is invalid:\n%w", file, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "route template %s is valid\n", file)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "route.yaml", "route template yaml path")
	return cmd
}
