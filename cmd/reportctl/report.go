package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/upload"
)

type reportFlags struct {
	layer      string
	filter     string
	dictionary string
	groups     []string
	allGroups  bool
	locality   string
}

func newReportCmd(getApp func() *app, flags *rootFlags) *cobra.Command {
	var rf reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Upload a filter and generate reports for the selected groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			var res model.ReportResult
			err := withStatusEcho(cmd.Context(), a.sess.Status, cmd.ErrOrStderr(), func(ctx context.Context) error {
				var err error
				res, err = runReport(ctx, a, rf)
				return err
			})
			if err != nil {
				return err
			}
			if flags.output != "text" {
				return encode(cmd.OutOrStdout(), flags.output, res)
			}
			printResult(cmd, res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rf.layer, "layer", "", "layer name (default: first resolved layer)")
	f.StringVar(&rf.filter, "filter", "", "filter file to upload")
	f.StringVar(&rf.dictionary, "dictionary", "", "optional variable dictionary file")
	f.StringSliceVar(&rf.groups, "groups", nil, "comma separated group names")
	f.BoolVar(&rf.allGroups, "all-groups", false, "select every group of the layer")
	f.StringVar(&rf.locality, "locality", "", "locality name shown in the report")
	return cmd
}

func runReport(ctx context.Context, a *app, rf reportFlags) (model.ReportResult, error) {
	s := a.sess
	s.ResolveLayers(ctx)
	if rf.layer != "" && rf.layer != s.Selector.Selected() {
		if err := s.SelectLayer(ctx, rf.layer); err != nil {
			return model.ReportResult{}, fmt.Errorf("select layer: %w", err)
		}
	}

	if rf.filter != "" {
		f, err := upload.ReadFile(rf.filter)
		if err != nil {
			return model.ReportResult{}, err
		}
		if err := s.UploadFilter(ctx, f); err != nil {
			return model.ReportResult{}, err
		}
	}
	if rf.dictionary != "" {
		f, err := upload.ReadFile(rf.dictionary)
		if err != nil {
			return model.ReportResult{}, err
		}
		if err := s.UploadDictionary(ctx, f); err != nil {
			return model.ReportResult{}, err
		}
	}

	if rf.allGroups {
		s.Catalog.SelectAll("")
	}
	for _, g := range rf.groups {
		if g = strings.TrimSpace(g); g != "" && !s.Catalog.IsSelected(g) {
			s.Catalog.Toggle(g)
		}
	}
	s.SetLocality(rf.locality)
	return s.Submit(ctx)
}

func printResult(cmd *cobra.Command, res model.ReportResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Entidades: %d\n", res.EntitiesCount)
	for _, a := range res.Artifacts {
		fmt.Fprintf(w, "%-5s %s\n", strings.ToUpper(string(a.Kind)), a.Path)
	}
	for _, r := range res.Reports {
		line := fmt.Sprintf("%s: %d filas", r.Title(), r.RowsCount)
		if r.CSVPath != "" {
			line += "  " + r.CSVPath
		}
		fmt.Fprintln(w, line)
	}
}
