package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/layer-report-client/internal/core/config"
)

type rootFlags struct {
	backend     string
	logLevel    string
	cacheDriver string
	output      string
}

// newRootCmd returns the command tree and a closer for the app it builds.
func newRootCmd() (*cobra.Command, func() error) {
	var (
		flags rootFlags
		a     *app
	)

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Generate layer reports from the report backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch flags.output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("invalid --output %q (expected text|json|yaml)", flags.output)
			}
			cfg := config.FromEnv()
			if flags.backend != "" {
				cfg.BackendURL = strings.TrimRight(flags.backend, "/")
			}
			if flags.logLevel != "" {
				cfg.LogLevel = flags.logLevel
			}
			if flags.cacheDriver != "" {
				cfg.Cache.Driver = strings.ToLower(flags.cacheDriver)
			}
			var err error
			a, err = newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", "", "backend base URL (overrides BACKEND_URL)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	pf.StringVar(&flags.cacheDriver, "cache-driver", "", "layer cache driver: sqlite|redis|memory")
	pf.StringVarP(&flags.output, "output", "o", "text", "output format: text|json|yaml")

	getApp := func() *app { return a }
	root.AddCommand(
		newLayersCmd(getApp, &flags),
		newGroupsCmd(getApp, &flags),
		newReportCmd(getApp, &flags),
		newTUICmd(getApp),
	)
	closeApp := func() error {
		if a == nil {
			return nil
		}
		err := a.Close()
		a = nil
		return err
	}
	return root, closeApp
}
