package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/layer-report-client/internal/catalog"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
)

func newGroupsCmd(getApp func() *app, flags *rootFlags) *cobra.Command {
	var (
		layer string
		query string
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the variable groups of a layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			err := withStatusEcho(cmd.Context(), a.sess.Status, cmd.ErrOrStderr(), func(ctx context.Context) error {
				return a.sess.Catalog.Fetch(ctx, layer)
			})
			if err != nil {
				return err
			}
			groups := a.sess.Catalog.Filtered(query)
			if flags.output != "text" {
				if groups == nil {
					groups = []model.VariableGroup{}
				}
				return encode(cmd.OutOrStdout(), flags.output, groups)
			}
			for _, g := range groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", g.Group, catalog.ColumnsLabel(g))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layer, "layer", "", "layer name")
	cmd.Flags().StringVar(&query, "search", "", "case-insensitive group name filter")
	_ = cmd.MarkFlagRequired("layer")
	return cmd
}
