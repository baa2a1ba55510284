package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/pipeline"
	"github.com/kikiluvv/slideforge/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the render API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		// Requests arrive from remote clients: no host files
		pipe, err := pipeline.FromConfig(cmd.Context(), log.Logger, cfg, false)
		if err != nil {
			return fail(err)
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		return server.New(log.Logger, pipe, cfg.TempDir).Run(cmd.Context(), addr)
	},
}

var listCmd = &cobra.Command{
	Use:       "list [effects|transitions|fonts]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"effects", "transitions", "fonts"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := offlinePipeline(config.FromContext(cmd.Context()))
		out := cmd.OutOrStdout()

		switch args[0] {
		case "effects":
			for _, name := range pipe.Effects() {
				fmt.Fprintln(out, name)
			}
		case "transitions":
			for _, tr := range pipe.Transitions() {
				fmt.Fprintln(out, tr)
			}
		case "fonts":
			for _, name := range pipe.Fonts() {
				fmt.Fprintln(out, name)
			}
		default:
			return fmt.Errorf("unknown resource %q (want effects, transitions or fonts)", args[0])
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./slideforge.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := config.Default().Save(path); err != nil {
			return fail(err)
		}

		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
