package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/utils"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Inspect and maintain the derived-product artifact cache"}
	cmd.AddCommand(newCacheGCCmd())
	return cmd
}

func newCacheGCCmd() *cobra.Command {
	var kind string
	var currentSequence uint64
	var maxSequenceAge uint64
	var minArtifactsToKeep int

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Collect artifacts of a kind older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := cache.RetentionPolicy{MaxSequenceAge: maxSequenceAge, MinArtifactsToKeep: minArtifactsToKeep}
			report, err := artifacts.Collect(cmd.Context(), kind, currentSequence, policy)
			if err != nil {
				return &cliError{code: exitIOError, err: err}
			}
			fmt.Fprintf(os.Stdout, "scanned=%d removed=%d\n", report.Scanned, report.Removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", utils.EnvOrDefault("FANTASIM_GC_KIND", ""), "artifact kind to collect (required)")
	cmd.Flags().Uint64Var(&currentSequence, "current-sequence", 0, "current topology/kinematics sequence the age window is measured against")
	cmd.Flags().Uint64Var(&maxSequenceAge, "max-age", utils.EnvOrDefaultUint64("FANTASIM_GC_MAX_AGE", 100), "max sequence age before an artifact becomes collectible")
	cmd.Flags().IntVar(&minArtifactsToKeep, "min-keep", utils.EnvOrDefaultInt("FANTASIM_GC_MIN_KEEP", 1), "floor on surviving artifacts per kind, regardless of age")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
