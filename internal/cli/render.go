package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/routeops/traefik-route-relay/internal/relay"
	"github.com/routeops/traefik-route-relay/pkg/ingress"
	"github.com/routeops/traefik-route-relay/pkg/routecfg"
)

type renderOptions struct {
	file        string
	model       string
	units       []string
	entryPoints []string
	format      string
}

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a route template and print the merged traefik document",
		Long: `Render previews exactly what the relay daemon would hand to traefik for
the given units, without running a server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.file, "file", "f", "route.yaml", "route template yaml path")
	fs.StringVar(&opts.model, "model", "", "model name (required)")
	fs.StringArrayVar(&opts.units, "unit", nil, "unit name, e.g. app/0 (repeatable, required)")
	fs.StringArrayVar(&opts.entryPoints, "entry-point", nil, "traefik entry point (repeatable, default web)")
	fs.StringVar(&opts.format, "format", "yaml", "output format: yaml or json")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

func runRender(cmd *cobra.Command, opts renderOptions) error {
	if opts.format != "yaml" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q (supported: yaml, json)", opts.format)
	}

	tpl, err := routecfg.Load(opts.file)
	if err != nil {
		return err
	}
	requests := make([]ingress.UnitRequest, 0, len(opts.units))
	for _, u := range opts.units {
		requests = append(requests, ingress.UnitRequest{Unit: u, Model: opts.model})
	}

	res, err := relay.Evaluate(tpl, requests, opts.entryPoints...)
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Unit, s.Reason)
	}
	for _, u := range requests {
		if url, ok := res.URLs[u.Unit]; ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", u.Unit, url)
		}
	}

	var out []byte
	if opts.format == "json" {
		out, err = json.MarshalIndent(res.Document, "", "  ")
		if err == nil {
			out = append(out, '\n')
		}
	} else {
		out, err = yaml.Marshal(res.Document)
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
