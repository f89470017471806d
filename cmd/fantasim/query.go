package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/service"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/velocity"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "query", Short: "Point and plate-motion queries against materialized state"}
	cmd.AddCommand(newQueryPlateIDCmd(), newQueryVelocityCmd())
	return cmd
}

func newQueryPlateIDCmd() *cobra.Command {
	var tickArg string
	var lon, lat float64
	var policyName string
	var featureSetArg string

	cmd := &cobra.Command{
		Use:   "plate-id",
		Short: "Find which plate's reconstructed polygon contains a point",
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

			result, err := svc.QueryPlateID(cmd.Context(), featureSetID, tick, velocity.GeoPoint{LonDeg: lon, LatDeg: lat}, policy)
			if err != nil {
				return &cliError{code: exitCodeForReconstructErr(err), err: err}
			}
			if result.Confidence == service.Unassigned {
				fmt.Fprintln(os.Stdout, "no containing plate found")
				return nil
			}
			fmt.Fprintf(os.Stdout, "plate=%s confidence=%s\n", shortID(result.PlateID), result.Confidence)
			for _, c := range result.Candidates {
				fmt.Fprintf(os.Stdout, "  candidate=%s probability=%.4f\n", shortID(c.PlateID), c.Probability)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tickArg, "tick", "0", "tick to materialize the topology stream at")
	cmd.Flags().Float64Var(&lon, "lon", 0, "point longitude, degrees")
	cmd.Flags().Float64Var(&lat, "lat", 0, "point latitude, degrees")
	cmd.Flags().StringVar(&policyName, "tolerance", "default", "tolerance policy: strict|lenient|default")
	cmd.Flags().StringVar(&featureSetArg, "feature-set", "", "existing feature_set_id to query (registers one against the current stream flags if omitted)")
	return cmd
}

func newQueryVelocityCmd() *cobra.Command {
	var tickArg string
	var lon, lat float64
	var frameKind string
	var modelArg string
	var featureSetArg string

	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Evaluate the owning plate's velocity at a point and tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			tick, err := parseTick(tickArg)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			frame, err := parseFrame(frameKind)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			var modelID ids.ModelID
			if modelArg != "" {
				modelID, err = ids.ParseModelID(modelArg)
				if err != nil {
					return &cliError{code: exitInvalidArgs, err: err}
				}
			}
			featureSetID, err := resolveOrRegisterFeatureSet(cmd.Context(), featureSetArg)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}

			kinematicsStream := currentStream(ids.DomainKinematics)
			result, err := svc.QueryVelocity(cmd.Context(), featureSetID, kinematicsStream, velocity.GeoPoint{LonDeg: lon, LatDeg: lat}, tick, modelID, frame)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			fmt.Fprintf(os.Stdout, "plate=%s total=(%.6f,%.6f,%.6f) magnitude=%.6f azimuth=%.2f\n",
				shortID(result.PlateID), result.Total.VX, result.Total.VY, result.Total.VZ, result.MagnitudeKmPerTick, result.AzimuthDeg)
			fmt.Fprintf(os.Stdout, "  plate_rotation=(%.6f,%.6f,%.6f)\n",
				result.PlateRotationComponent.VX, result.PlateRotationComponent.VY, result.PlateRotationComponent.VZ)
			fmt.Fprintf(os.Stdout, "  boundary_interaction=(%.6f,%.6f,%.6f)\n",
				result.BoundaryInteractionComponent.VX, result.BoundaryInteractionComponent.VY, result.BoundaryInteractionComponent.VZ)
			fmt.Fprintf(os.Stdout, "  internal_deformation=(%.6f,%.6f,%.6f)\n",
				result.InternalDeformationComponent.VX, result.InternalDeformationComponent.VY, result.InternalDeformationComponent.VZ)
			return nil
		},
	}
	cmd.Flags().StringVar(&tickArg, "tick", "0", "tick to materialize the kinematics stream at")
	cmd.Flags().Float64Var(&lon, "lon", 0, "point longitude, degrees")
	cmd.Flags().Float64Var(&lat, "lat", 0, "point latitude, degrees")
	cmd.Flags().StringVar(&frameKind, "frame", "mantle", "reference frame: mantle|absolute|plate:<id>")
	cmd.Flags().StringVar(&modelArg, "model", "", "expected kinematics model_id for the resolved plate (optional)")
	cmd.Flags().StringVar(&featureSetArg, "feature-set", "", "existing feature_set_id naming the topology stream to resolve the point's plate from (registers one against the current stream flags if omitted)")
	return cmd
}

func parseFrame(name string) (velocity.Frame, error) {
	switch {
	case name == "mantle":
		return velocity.Frame{Kind: velocity.MantleFrame}, nil
	case name == "absolute":
		return velocity.Frame{Kind: velocity.AbsoluteFrame}, nil
	case strings.HasPrefix(name, "plate:"):
		plate, err := ids.ParsePlateID(strings.TrimPrefix(name, "plate:"))
		if err != nil {
			return velocity.Frame{}, fmt.Errorf("parse anchor plate: %w", err)
		}
		return velocity.Frame{Kind: velocity.PlateAnchor, Plate: plate}, nil
	default:
		return velocity.Frame{}, fmt.Errorf("unknown frame %q: want mantle|absolute|plate:<id>", name)
	}
}
