package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/bootstrap"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "import", Short: "Bootstrap truth events from an external dataset"}
	cmd.AddCommand(newImportTSVCmd(), newImportDatasetCmd())
	return cmd
}

func newImportTSVCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "tsv",
		Short: "Import a plate-motion-model TSV file as MotionSegmentUpserted events",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return &cliError{code: exitIOError, err: err}
			}
			defer f.Close()

			records, err := bootstrap.ReadMotionTSV(f, nil)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			events, ticks := bootstrap.ToMotionSegmentUpserted(records)

			stream := currentStream(ids.DomainKinematics)
			if err := kinStore.Append(cmd.Context(), stream, events, ticks, eventlog.AppendOptions{TickPolicy: eventlog.TickAllow}); err != nil {
				return &cliError{code: exitCodeForReadErr(err), err: err}
			}
			fmt.Fprintf(os.Stdout, "imported %d motion segments\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "path to the plate-motion TSV file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImportDatasetCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Import every TSV file named by a YAML dataset manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := bootstrap.LoadManifest(manifestPath)
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			records, err := manifest.ImportAll()
			if err != nil {
				return &cliError{code: exitInvalidArgs, err: err}
			}
			events, ticks := bootstrap.ToMotionSegmentUpserted(records)

			stream := currentStream(ids.DomainKinematics)
			if err := kinStore.Append(cmd.Context(), stream, events, ticks, eventlog.AppendOptions{TickPolicy: eventlog.TickAllow}); err != nil {
				return &cliError{code: exitCodeForReadErr(err), err: err}
			}
			fmt.Fprintf(os.Stdout, "imported dataset %q: %d motion segments from %d files\n", manifest.Name, len(records), len(manifest.Files))
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the dataset manifest YAML file (required)")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
