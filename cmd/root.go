// Package cmd defines and implements the CLI commands for the safescrape executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/api"
	"github.com/JakeFAU/safescrape/internal/app"
	"github.com/JakeFAU/safescrape/internal/config"
	"github.com/JakeFAU/safescrape/internal/dictionary"
	"github.com/JakeFAU/safescrape/internal/scrape"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Engine() *scrape.Engine
	Dictionaries() *dictionary.Store
	Server() *api.Server
}

// newApp is the application factory; tests replace it to inject fakes.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safescrape",
		Short: "Scrape page text with robots.txt, domain, and word-list safeguards.",
		Long: `safescrape loads a page in a headless browser after checking robots.txt
and a domain block-list, extracts its visible text, removes duplicate content,
and redacts words found in the configured block-lists.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Builds the App once flags are parsed and before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON, or TOML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// execute runs root and closes the App built for the executed subcommand,
// whether or not it succeeded.
func execute(ctx context.Context, root *cobra.Command) error {
	executed, err := root.ExecuteContextC(ctx)
	if executed != nil && executed.Context() != nil {
		if appInstance, ok := executed.Context().Value(appKey).(App); ok && appInstance != nil {
			appInstance.Close()
		}
	}
	return err
}

// Execute is the main entry point.
func Execute() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
