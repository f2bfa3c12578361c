package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/logging"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <url-or-file>",
		Short: "Cut highlight clips from a video URL or a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}
	cmd.Flags().String("out", "out", "Output directory")
	cmd.Flags().Int("clips", 5, "Max clips per video")
	cmd.Flags().StringSlice("formats", nil, "Output formats (default: all configured)")
	cmd.Flags().Int("workers", 3, "Concurrent renders")
	cmd.Flags().Bool("burn-captions", false, "Burn transcript captions into clips")
	return cmd
}

func run(cmd *cobra.Command, input string) error {
	formats, _ := cmd.Flags().GetStringSlice("formats")
	in, err := absInput(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	defer cancel()

	app, log, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	st, manifest, err := app.Run(ctx, in, formats)
	if err != nil {
		return err
	}
	logf := logging.Printf(log)
	if st.Note != "" {
		logf("note: %s", st.Note)
	}
	for _, a := range st.Outputs {
		fmt.Fprintln(cmd.OutOrStdout(), a.Path)
	}
	logf("manifest written (%d clips): %s", len(st.Outputs), manifest)
	return nil
}
