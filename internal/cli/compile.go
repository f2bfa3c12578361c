package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <clip> <clip> [clip...]",
		Short: "Join clips into one reel",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compile,
	}
	f := cmd.Flags()
	f.String("transition", string(types.TransitionCut), "Transition (cut, fade, crossfade)")
	f.Float64("transition-duration", 0.5, "Transition duration in seconds")
	f.String("title", "", "Reel title")
	f.String("format", "", "Output format (default: first configured)")
	f.String("dir", "", "Output directory (default: <paths.output>/compilations)")
	return cmd
}

func compile(cmd *cobra.Command, args []string) error {
	app, _, err := buildApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	f := cmd.Flags()
	format, _ := f.GetString("format")
	if format == "" {
		format = app.Config.FormatNames()[0]
	}
	p, err := app.Jobs.Profile(format)
	if err != nil {
		return err
	}
	tr, _ := f.GetString("transition")
	d, _ := f.GetFloat64("transition-duration")
	title, _ := f.GetString("title")
	out, _ := f.GetString("dir")
	if out == "" {
		out = filepath.Join(app.Config.Paths.Output, "compilations")
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	assets := make([]types.OutputAsset, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return err
		}
		assets = append(assets, types.OutputAsset{Path: abs, Filename: filepath.Base(abs), Title: usecase.Stem(abs)})
	}
	spec := types.CompilationSpec{
		Transition:         types.Transition(tr),
		TransitionDuration: secondsDur(d),
		Title:              title,
		Profile:            p,
	}
	asset, err := app.Compiler.Compile(cmd.Context(), assets, spec, filepath.Join(out, usecase.CompilationFilename(title)))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), asset.Path)
	return nil
}
