// Command fantasim is the FantaSim-World CLI: event log reads, the DES
// runner, the reconstruction/partition solver, plate/velocity queries,
// artifact cache maintenance, and dataset import.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/service"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/config"
)

// Exit codes, per the CLI contract: 0 success, 2 invalid args/config, 3
// corruption, 4 tick policy violation, 5 I/O error.
const (
	exitOK              = 0
	exitInvalidArgs     = 2
	exitCorruption      = 3
	exitTickViolation   = 4
	exitIOError         = 5
)

var (
	log        = logrus.New()
	cfgFile    string
	streamSpec streamFlags

	backing       kv.Store
	topoStore     *topology.Store
	kinStore      *kinematics.Store
	rawEventStore *eventlog.Store
	artifacts     *cache.Cache
	svc           *service.Service
)

// streamFlags holds the --variant/--branch/--level/--model flags common
// to every command that addresses a stream.
type streamFlags struct {
	variant string
	branch  string
	level   uint32
	model   string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fantasim",
		Short: "Deterministic event-sourced tectonic plate simulation substrate",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if backing != nil {
				_ = backing.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to fantasim.yaml (optional)")
	root.PersistentFlags().StringVar(&streamSpec.variant, "variant", "baseline", "stream variant namespace")
	root.PersistentFlags().StringVar(&streamSpec.branch, "branch", "main", "stream branch namespace")
	root.PersistentFlags().Uint32Var(&streamSpec.level, "level", 0, "stream detail level")
	root.PersistentFlags().StringVar(&streamSpec.model, "model", "default", "stream model namespace")

	root.AddCommand(newEventCmd())
	root.AddCommand(newDESCmd())
	root.AddCommand(newReconstructCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newImportCmd())
	return root
}

func initRuntime(cmd *cobra.Command) error {
	cfg, err := config.LoadExplicit(cfgFile)
	if err != nil {
		return &cliError{code: exitInvalidArgs, err: fmt.Errorf("config: %w", err)}
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}

	dataDir := filepath.Dir(cfg.Storage.DBPath)
	if dataDir != "." {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return &cliError{code: exitIOError, err: fmt.Errorf("data dir: %w", err)}
		}
	}
	store, err := kv.OpenBoltStore(cfg.Storage.DBPath)
	if err != nil {
		return &cliError{code: exitIOError, err: fmt.Errorf("open store: %w", err)}
	}
	backing = store

	entry := log.WithField("component", "fantasim")
	topoStore = topology.NewStore(store, entry)
	kinStore = kinematics.NewStore(store, entry)
	rawEventStore = eventlog.NewStore(store, entry)
	artifacts = cache.New(store, "fantasim", entry)
	svc = service.New(topoStore, kinStore, artifacts, store, entry)
	return nil
}

// cliError pairs an error with the exit code it should produce, letting
// command RunE functions return typed outcomes without each one
// reimplementing the error-to-exit-code mapping.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ce *cliError
	if ok := asCliError(err, &ce); ok {
		return ce.code
	}
	return exitIOError
}

func asCliError(err error, target **cliError) bool {
	for err != nil {
		if ce, ok := err.(*cliError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
