// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/yggsearch/internal/buildinfo"
	"github.com/autobrr/yggsearch/internal/categories"
	"github.com/autobrr/yggsearch/internal/config"
	"github.com/autobrr/yggsearch/internal/search"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configDir string
	dataDir   string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:   "yggsearch",
		Short: "Search YggTorrent from the command line",
		Long: `yggsearch - finds the current YggTorrent address and searches it,
printing results in qBittorrent search plugin format or as JSON.`,
		SilenceUsage: true,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/yggsearch/ or %APPDATA%\\yggsearch\\). Can also be a direct path to a .toml file")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory for the url cache (default is next to config file)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(RunSearchCommand(flags))
	rootCmd.AddCommand(RunCategoriesCommand())
	rootCmd.AddCommand(RunResolveURLCommand(flags))
	rootCmd.AddCommand(RunGenerateConfigCommand(flags))
	rootCmd.AddCommand(RunVersionCommand())

	return rootCmd
}

func RunSearchCommand(flags *globalFlags) *cobra.Command {
	var (
		category string
		pages    int
		asJSON   bool
		filter   string
	)

	var command = &cobra.Command{
		Use:   "search [query...]",
		Short: "Search torrents",
		Long: `Search torrents and print one result per line.

Without --json every line uses the qBittorrent nova format:
link|name|size|seeds|leech|engine_url|desc_link|pub_date

Network failures never make the command fail; whatever was gathered is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			if cmd.Flags().Changed("filter") {
				app.cfg.Config.Search.Filter = filter
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.runSearch(ctx, cmd.OutOrStdout(), searchOptions{
				query:    strings.Join(args, " "),
				category: category,
				pages:    pages,
				pagesSet: cmd.Flags().Changed("pages"),
				asJSON:   asJSON,
			})
		},
	}

	command.Flags().StringVarP(&category, "category", "c", categories.All, "category alias or site category id")
	command.Flags().IntVar(&pages, "pages", 0, "maximum number of pages to fetch, 0 for no limit (default from config)")
	command.Flags().BoolVar(&asJSON, "json", false, "print results as JSON lines")
	command.Flags().StringVar(&filter, "filter", "", `only print rows matching this expression, e.g. "Seeders >= 5"`)

	return command
}

func RunCategoriesCommand() *cobra.Command {
	var output string

	var command = &cobra.Command{
		Use:   "categories",
		Short: "List supported category aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCategories(cmd.OutOrStdout(), categories.Default(), output)
		},
	}

	command.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	return command
}

func writeCategories(w io.Writer, m *categories.Map, output string) error {
	entries := m.All()

	switch strings.ToLower(output) {
	case "", "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ALIAS\tID")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", e.Alias, e.ID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d categories\n", m.Count())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Errorf("unsupported output format %q", output)
	}
}

func RunResolveURLCommand(flags *globalFlags) *cobra.Command {
	var refresh bool

	var command = &cobra.Command{
		Use:   "resolve-url",
		Short: "Print the current site address",
		Long: `Print the current site address, from the cache when it is fresh.

--refresh ignores the cache and runs discovery, storing the result on success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			siteURL := app.resolveURL(ctx, refresh)
			fmt.Fprintln(cmd.OutOrStdout(), siteURL)
			app.writeMetrics()
			return nil
		},
	}

	command.Flags().BoolVar(&refresh, "refresh", false, "skip the cache and run discovery")

	return command
}

func RunGenerateConfigCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/yggsearch/config.toml
- Windows: %APPDATA%\yggsearch\config.toml

You can specify either a directory path or a direct file path:
- Directory: yggsearch generate-config --config-dir /path/to/config/
- File: yggsearch generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := configFilePath(flags.configDir)

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	return command
}

func configFilePath(configDir string) string {
	if configDir == "" {
		return filepath.Join(config.GetDefaultConfigDir(), "config.toml")
	}
	if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
		return configDir
	}
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return configDir
	}
	return filepath.Join(configDir, "config.toml")
}

func RunVersionCommand() *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of yggsearch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}

	return command
}

// searchOptions carries the per-invocation search flags.
type searchOptions struct {
	query    string
	category string
	pages    int
	pagesSet bool
	asJSON   bool
}

func (o searchOptions) pageLimit(configured int) int {
	if o.pagesSet {
		return max(o.pages, 0)
	}
	return max(configured, 0)
}

func logSearchDone(summary search.Summary, err error) {
	if err != nil {
		log.Warn().
			Err(err).
			Int("results", summary.Emitted).
			Int("pages", summary.Pages).
			Str("siteUrl", summary.SiteURL).
			Msg("Search ended early")
		return
	}
	log.Debug().
		Int("results", summary.Emitted).
		Int("pages", summary.Pages).
		Str("siteUrl", summary.SiteURL).
		Stringer("state", summary.State).
		Msg("Search finished")
}
