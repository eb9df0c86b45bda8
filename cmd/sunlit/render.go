package main

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/taigrr/sunlit/pkg/config"
	"github.com/taigrr/sunlit/pkg/pathtrace"
	"github.com/taigrr/sunlit/pkg/render"
)

// renderStats aggregates the per-frame statistics of a headless render.
type renderStats struct {
	frames  int
	tiles   int
	pixels  int
	fastest time.Duration
	slowest time.Duration
	total   time.Duration
}

func (s *renderStats) add(f pathtrace.FrameStats) {
	if s.frames == 0 || f.Duration < s.fastest {
		s.fastest = f.Duration
	}
	s.slowest = max(s.slowest, f.Duration)
	s.frames++
	s.tiles = f.Tiles
	s.pixels = f.Pixels
	s.total += f.Duration
}

func (s *renderStats) mean() time.Duration {
	if s.frames == 0 {
		return 0
	}
	return s.total / time.Duration(s.frames)
}

func newRenderCmd(opts *options) *cobra.Command {
	var (
		out        string
		yaw, pitch float64
	)

	cmd := &cobra.Command{
		Use:   "render <scene>",
		Short: "Accumulate frames headless and save a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			if cfg.MaxFrames == 0 {
				return errors.New("render needs a frame limit; set --frames")
			}
			closer, err := setupLogging(cfg, opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			s, err := loadScene(args[0])
			if err != nil {
				return err
			}

			cam := render.NewCamera()
			cam.SetAspectRatio(float64(cfg.Width) / float64(cfg.Height))
			cam.SetOrbit(yaw, pitch, cam.Distance)
			cam.Frame(s.store.Bounds())

			r, err := pathtrace.NewRenderer(s.store, cfg.Width, cfg.Height, cfg.PathTrace())
			if err != nil {
				return err
			}
			session := pathtrace.NewSession(r, uint32(cfg.MaxFrames))

			logger.Noticef("rendering %s at %dx%d, %d frames", s.name, cfg.Width, cfg.Height, cfg.MaxFrames)
			var stats renderStats
			for !session.Converged() {
				f, _, err := session.Step(cmd.Context(), cam.CameraToWorld(), cam.InverseProjection())
				if err != nil {
					return err
				}
				stats.add(f)
				if stats.frames%32 == 0 {
					logger.Infof("%d/%d frames", stats.frames, cfg.MaxFrames)
				}
			}

			if err := render.SavePNG(out, r.Buffer().ToImage(cfg.Gamma)); err != nil {
				return err
			}
			displayFrameStats(cfg, &stats)
			logger.Noticef("wrote %s", out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&out, "out", "o", "out.png", "PNG output file")
	flags.IntVar(&opts.width, "width", 0, "image width in pixels")
	flags.IntVar(&opts.height, "height", 0, "image height in pixels")
	flags.Float64Var(&yaw, "yaw", 0, "camera yaw around the scene in radians")
	flags.Float64Var(&pitch, "pitch", 0.3, "camera elevation in radians")
	return cmd
}

func displayFrameStats(cfg config.Config, stats *renderStats) {
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frames", "Tiles", "Workers", "Fastest", "Slowest", "Mean"})
	table.Append([]string{
		fmt.Sprintf("%d", stats.frames),
		fmt.Sprintf("%d", stats.tiles),
		fmt.Sprintf("%d", workers),
		stats.fastest.String(),
		stats.slowest.String(),
		stats.mean().String(),
	})
	var rate float64
	if stats.total > 0 {
		rate = float64(stats.pixels*stats.frames) / stats.total.Seconds() / 1e6
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%.2f Msamples/s", rate), stats.total.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
