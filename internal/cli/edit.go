package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/types"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Trim, retime, color-grade or caption an existing clip",
		Args:  cobra.ExactArgs(1),
		RunE:  edit,
	}
	f := cmd.Flags()
	f.String("format", "", "Output format (default: first configured)")
	f.String("dir", "", "Output directory (default: paths.edited)")
	f.String("title", "", "Clip title")
	f.Float64("trim-start", 0, "Trim start in seconds")
	f.Float64("trim-end", 0, "Trim end in seconds")
	f.Float64("speed", 1, "Playback speed multiplier")
	f.Float64("brightness", 1, "Brightness multiplier")
	f.Float64("contrast", 1, "Contrast multiplier")
	f.Float64("saturation", 1, "Saturation multiplier")
	f.String("text", "", "Overlay text")
	f.String("text-position", string(types.PositionBottom), "Overlay position (top, center, bottom)")
	f.Int("font-size", 48, "Overlay font size")
	f.String("color", "white", "Overlay color")
	return cmd
}

func edit(cmd *cobra.Command, args []string) error {
	in, err := absInput(args[0])
	if err != nil {
		return err
	}
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
	out, _ := f.GetString("dir")
	if out == "" {
		out = app.Config.Paths.Edited
	}

	spec := types.EditSpec{}
	spec.Title, _ = f.GetString("title")
	if f.Changed("trim-start") {
		v, _ := f.GetFloat64("trim-start")
		d := secondsDur(v)
		spec.TrimStart = &d
	}
	if f.Changed("trim-end") {
		v, _ := f.GetFloat64("trim-end")
		d := secondsDur(v)
		spec.TrimEnd = &d
	}
	if f.Changed("speed") {
		v, _ := f.GetFloat64("speed")
		spec.Speed = &v
	}
	if f.Changed("brightness") || f.Changed("contrast") || f.Changed("saturation") {
		b, _ := f.GetFloat64("brightness")
		c, _ := f.GetFloat64("contrast")
		s, _ := f.GetFloat64("saturation")
		spec.Filters = &types.Filters{Brightness: b, Contrast: c, Saturation: s}
	}
	if text, _ := f.GetString("text"); text != "" {
		pos, _ := f.GetString("text-position")
		size, _ := f.GetInt("font-size")
		color, _ := f.GetString("color")
		spec.Overlay = &types.TextOverlay{Text: text, Position: types.Position(pos), FontSize: size, Color: color}
	}

	asset, err := app.Editor.Edit(cmd.Context(), in, spec, p, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), asset.Path)
	return nil
}

func secondsDur(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
