package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"pkg.jsn.cam/synthgen/internal/config"
	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/internal/ledger/postgres"
	"pkg.jsn.cam/synthgen/internal/ledger/sqlite"
	"pkg.jsn.cam/synthgen/internal/logging"
	"pkg.jsn.cam/synthgen/internal/service"
	"pkg.jsn.cam/synthgen/pkg/storage"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger

	overrides struct {
		driver, path, dsn, logLevel, logFormat string
	}
)

var rootCmd = &cobra.Command{
	Use:           "synthgen",
	Short:         "Unique synthetic record generator",
	Long:          `synthgen manufactures synthetic addresses, identities, dates, passwords, logins, mails, institution codes, images and integers, and guarantees that no value is issued twice within a scope.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("driver") {
			cfg.Store.Driver = overrides.driver
		}
		if flags.Changed("path") {
			cfg.Store.Path = overrides.path
		}
		if flags.Changed("dsn") {
			cfg.Store.DSN = overrides.dsn
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = overrides.logLevel
		}
		if flags.Changed("log-format") {
			cfg.Log.Format = overrides.logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&overrides.driver, "driver", "", "store driver: memory, bbolt, sqlite or postgres")
	flags.StringVar(&overrides.path, "path", "", "store file for bbolt and sqlite")
	flags.StringVar(&overrides.dsn, "dsn", "", "postgres connection string")
	flags.StringVar(&overrides.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&overrides.logFormat, "log-format", "", "text or json")

	rootCmd.AddCommand(serveCmd, generateCmd, seedCmd, kindsCmd, statsCmd, compactCmd)
}

// store is an opened ledger. bolt is set only for the bbolt driver.
type store struct {
	ledger ledger.Ledger
	bolt   *storage.BboltBackend
}

func openStore(ctx context.Context) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		kv, err := ledger.NewKV(storage.NewMemoryBackend(), logger)
		if err != nil {
			return nil, err
		}
		return &store{ledger: kv}, nil

	case config.DriverBbolt:
		backend, err := storage.NewBboltBackend(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		kv, err := ledger.NewKV(backend, logger)
		if err != nil {
			backend.Close()
			return nil, err
		}
		return &store{ledger: kv, bolt: backend}, nil

	case config.DriverSQLite:
		l, err := sqlite.Open(ctx, cfg.Store.Path, logger)
		if err != nil {
			return nil, err
		}
		return &store{ledger: l}, nil

	case config.DriverPostgres:
		l, err := postgres.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			return nil, err
		}
		return &store{ledger: l}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// openService wires the configured store, dictionaries and options. The
// service is closed at exit.
func openService(ctx context.Context) (*service.Service, *store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	dicts := dictionary.Default()
	if cfg.Generator.Dictionary != "" {
		if dicts, err = dictionary.Load(cfg.Generator.Dictionary); err != nil {
			st.ledger.Close()
			return nil, nil, err
		}
	}

	svc := service.New(st.ledger, dicts,
		service.WithLogger(logger),
		service.WithMaxAttempts(cfg.Generator.MaxAttempts),
		service.WithDefaultProcessID(cfg.Generator.ProcessID),
	)
	atexit.Register(func() {
		if err := svc.Close(); err != nil {
			logger.Error("close service", "event", "cli.close", "error", err)
		}
	})

	logger.Debug("service ready",
		"event", "cli.open",
		"driver", cfg.Store.Driver,
		"process_id", svc.DefaultProcessID(),
	)
	return svc, st, nil
}
