// Command flintd runs a Dragonfly server with the Flint runtime and a small
// demo plugin.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/df-mc/dragonfly/server"
	"github.com/spf13/cobra"

	"github.com/oriumgames/flint"
	"github.com/oriumgames/flint/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "flintd",
		Short:         "Run a Dragonfly server with the Flint runtime",
		Version:       flint.Version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file; FLINT_ environment variables override it")
	return root
}

func newLogger(cfg config.Config) *slog.Logger {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.Level(cfg.Level()),
	})
	return slog.New(handler)
}

func run(cfg config.Config) error {
	logger := newLogger(cfg)

	uc := server.DefaultConfig()
	uc.Network.Address = cfg.Server.Address
	uc.Server.Name = cfg.Server.Name
	uc.Server.AuthEnabled = cfg.Server.AuthEnabled
	uc.Players.MaxCount = cfg.Server.MaxPlayers
	uc.World.Folder = cfg.Server.WorldFolder

	conf, err := uc.Config(logger)
	if err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	demo, err := newDemo()
	if err != nil {
		return err
	}
	rt, err := flint.NewBuilder().
		Config(cfg).
		Logger(logger).
		Resource(&demo.settings).
		Plugin(demo.plugin).
		Init()
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	srv := conf.New()
	srv.CloseOnProgramEnd()
	srv.Listen()
	logger.Info("listening", "address", cfg.Server.Address, "version", flint.Version)

	for p := range srv.Accept() {
		demo.join(rt.Join(p, srv.World()))
	}
	return nil
}
