package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/layer-report-client/internal/resolver"
)

type layersOut struct {
	State  string   `json:"state" yaml:"state"`
	Source string   `json:"source" yaml:"source"`
	Layers []string `json:"layers" yaml:"layers"`
}

func newLayersCmd(getApp func() *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "Resolve and list the available layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			var out resolver.Outcome
			err := withStatusEcho(cmd.Context(), a.sess.Status, cmd.ErrOrStderr(), func(ctx context.Context) error {
				out = a.sess.Resolver.Resolve(ctx)
				return ctx.Err()
			})
			if err != nil {
				return err
			}

			var names []string
			for _, o := range a.sess.Selector.Options() {
				if !o.Disabled {
					names = append(names, o.Name)
				}
			}
			if out.State == resolver.Failed {
				return fmt.Errorf("no layers available: %w", out.Err)
			}

			if flags.output != "text" {
				return encode(cmd.OutOrStdout(), flags.output, layersOut{
					State: out.State.String(), Source: string(out.Source), Layers: names,
				})
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
