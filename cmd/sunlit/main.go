// sunlit - progressive path tracer for triangle scenes.
//
// Scenes load from GLB/GLTF, Wavefront OBJ, baked .bin buffers or one of
// the builtin:<name> procedural scenes. The view command previews them in
// the terminal; render writes a converged PNG.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/sunlit/pkg/config"
)

var version = "dev"

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	verbosity  int
	logFile    string

	width   int
	height  int
	bounces int
	frames  int
	workers int
	normals string
	gamma   float64
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sunlit",
		Short: "Progressive path tracer for triangle scenes",
		Long: "sunlit traces triangle scenes lit by a sun-and-sky environment, " +
			"accumulating one sample per pixel per frame until the image converges.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "JSON settings file")
	pf.CountVarP(&opts.verbosity, "verbose", "v", "log verbosity (-v info, -vv debug)")
	pf.StringVar(&opts.logFile, "log-file", "", "append log output to this file")
	pf.IntVar(&opts.bounces, "bounces", 0, "maximum path length")
	pf.IntVar(&opts.frames, "frames", 0, "frames to accumulate before stopping (0 never stops)")
	pf.IntVar(&opts.workers, "workers", 0, "tile workers (0 uses every CPU)")
	pf.StringVar(&opts.normals, "normals", "", "shading normals: geometric or interpolated")
	pf.Float64Var(&opts.gamma, "gamma", 0, "display gamma")

	root.AddCommand(
		newViewCmd(opts),
		newRenderCmd(opts),
		newInfoCmd(opts),
		newBakeCmd(opts),
	)
	return root
}

// settings loads the config file, if any, and applies the flags the user
// set on top of it.
func (o *options) settings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Width = o.width
	}
	if flags.Changed("height") {
		cfg.Height = o.height
	}
	if flags.Changed("bounces") {
		cfg.MaxBounces = o.bounces
	}
	if flags.Changed("frames") {
		cfg.MaxFrames = o.frames
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("normals") {
		cfg.NormalMode = o.normals
	}
	if flags.Changed("gamma") {
		cfg.Gamma = o.gamma
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
