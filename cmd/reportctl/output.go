package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

// encode writes v as json or yaml; text output is left to the caller.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", format)
}

// withStatusEcho runs fn while printing status updates to w.
func withStatusEcho(ctx context.Context, ch *status.Channel, w io.Writer, fn func(context.Context) error) error {
	sub, unsubscribe := ch.Subscribe(32)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return echoStatus(gctx, sub, w) })
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}

func echoStatus(ctx context.Context, sub <-chan status.Status, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case s, ok := <-sub:
					if !ok {
						return nil
					}
					printStatus(w, s)
				default:
					return nil
				}
			}
		case s, ok := <-sub:
			if !ok {
				return nil
			}
			printStatus(w, s)
		}
	}
}

func printStatus(w io.Writer, s status.Status) {
	line := fmt.Sprintf("[%s] %s", s.Kind, s.Text)
	if s.Detail != "" {
		line += ": " + s.Detail
	}
	fmt.Fprintln(w, line)
}
