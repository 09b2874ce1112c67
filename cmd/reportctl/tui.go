package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/layer-report-client/internal/core/server"
	"github.com/mohammed-shakir/layer-report-client/internal/tui"
	"github.com/mohammed-shakir/layer-report-client/internal/upload"
)

func newTUICmd(getApp func() *app) *cobra.Command {
	var watch string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			if a.cfg.StatusAddr != "" {
				h := server.Handler(a.log.With("component", "status-server"), a.sess, a.metricsHandler())
				g.Go(func() error { return server.Run(gctx, a.cfg.StatusAddr, a.log, h) })
			}
			if watch == "" {
				watch = a.cfg.WatchFilter
			}
			if watch != "" {
				w := upload.NewWatcher(watch, a.sess.Filter, upload.WithWatcherLogger(a.log.With("component", "watcher")))
				g.Go(func() error { return w.Run(gctx) })
			}

			m := tui.New(gctx, a.sess)
			defer m.Close()
			g.Go(func() error {
				defer cancel()
				_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx)).Run()
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&watch, "watch", "", "filter file to upload now and re-upload whenever it changes")
	return cmd
}
