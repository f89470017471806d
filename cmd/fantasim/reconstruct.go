package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/reconstruct"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

func newReconstructCmd() *cobra.Command {
	var tickArg string
	var policyName string
	var allowPartial bool
	var featureSetArg string

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Polygonize a feature set's topology stream at a tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			tick, err := parseTick(tickArg)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			policy, err := parsePolicy(policyName)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}

			featureSetID, err := resolveOrRegisterFeatureSet(cmd.Context(), featureSetArg)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}

			rr, err := svc.Reconstruct(cmd.Context(), featureSetID, tick, policy, reconstruct.PartitionOptions{AllowPartial: allowPartial})
			if err != nil {
				return &cliError{code: exitCodeForReconstructErr(err), err: err}
			}

			fmt.Fprintf(os.Stdout, "feature_set=%s features=%d cache_hit=%v warnings=%v\n",
				featureSetID.String(), len(rr.Features), rr.Provenance.CacheHit, rr.Quality.Warnings)
			for _, f := range rr.Features {
				fmt.Fprintf(os.Stdout, "  feature=%s source=%s plate=%s area=%.6f holes=%d\n",
					shortID(f.FeatureID), shortID(f.SourceFeatureID), shortID(f.PlateID), f.Polygon.Area, len(f.Polygon.Holes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tickArg, "tick", "0", "tick to materialize the topology stream at")
	cmd.Flags().StringVar(&policyName, "tolerance", "default", "tolerance policy: strict|lenient|default")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "accept an incomplete (non-closing) partition")
	cmd.Flags().StringVar(&featureSetArg, "feature-set", "", "existing feature_set_id to reconstruct (registers one against the current --variant/--branch/--level/--model stream if omitted)")
	return cmd
}

// resolveOrRegisterFeatureSet parses arg as a feature_set_id if given, or
// else registers a fresh one bound to the current stream flags, so the
// reconstruct/query commands keep working against a bare stream without
// requiring an explicit prior registration step.
func resolveOrRegisterFeatureSet(ctx context.Context, arg string) (ids.FeatureSetID, error) {
	if arg != "" {
		return ids.ParseFeatureSetID(arg)
	}
	stream := currentStream(ids.DomainTopology)
	return svc.RegisterFeatureSet(ctx, stream)
}

func parsePolicy(name string) (reconstruct.TolerancePolicy, error) {
	switch name {
	case "strict":
		return reconstruct.TolerancePolicy{Kind: reconstruct.Strict}, nil
	case "lenient":
		return reconstruct.TolerancePolicy{Kind: reconstruct.Lenient, Epsilon: 1e-7}, nil
	case "default":
		return reconstruct.TolerancePolicy{Kind: reconstruct.Default}, nil
	default:
		return reconstruct.TolerancePolicy{}, fmt.Errorf("unknown tolerance policy %q: want strict|lenient|default", name)
	}
}

func exitCodeForReconstructErr(err error) int {
	var it *ferrors.InvalidTopology
	var pf *ferrors.PolygonizationFailed
	if errors.As(err, &it) || errors.As(err, &pf) {
		return exitCorruption
	}
	return exitIOError
}
