package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rowmap/internal/adapter"
	"rowmap/internal/config"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/service"
)

// app is what every subcommand runs against
type app struct {
	cfg         *config.Config
	collections *adapter.Registry
	catalog     *service.Catalog
	log         *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "rowmap",
		Short:         "Seed, query and export rowmap collections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: search $ROWMAP_CONFIG, ./rowmap.yaml, XDG dirs)")

	open := func() (*app, error) {
		return openApp(configPath)
	}

	root.AddCommand(
		newSeedCmd(open),
		newQueryCmd(open),
		newExportCmd(open),
	)
	return root
}

// openApp loads configuration, initializes logging and opens the adapter
func openApp(configPath string) (*app, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if configPath != "" {
		cfg, path, err = config.LoadFromPath(configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(cfg.LoggerOptions()); err != nil {
		return nil, errors.Wrap(err, "initialize logger")
	}
	log := logger.Logger
	if path != "" {
		log.Debugw("Configuration loaded", "path", path)
	}

	a, err := adapter.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	collections := adapter.NewRegistry(a, log)

	catalog, err := service.NewCatalog(cfg, collections, nil, log)
	if err != nil {
		collections.Close()
		return nil, err
	}

	return &app{cfg: cfg, collections: collections, catalog: catalog, log: log}, nil
}

// backend returns the collection name, keyed as its relation declares
func (a *app) backend(name string) (repository.Backend, error) {
	return a.collections.Collection(name, a.cfg.Relations[name].Key)
}

func (a *app) Close() error {
	a.log.Sync()
	return a.collections.Close()
}
