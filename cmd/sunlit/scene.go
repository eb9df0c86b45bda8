package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/models"
)

// scene is a loaded scene ready for both renderers.
type scene struct {
	name    string
	buffers geometry.Buffers
	store   *geometry.Store
}

// loadScene reads a model, a builtin:<name> scene or a baked .bin file.
func loadScene(path string) (*scene, error) {
	var b geometry.Buffers
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scene: %w", err)
		}
		defer f.Close()
		if b, err = geometry.ReadBuffers(bufio.NewReader(f)); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		mesh, err := models.Load(path)
		if err != nil {
			return nil, err
		}
		b = geometry.FromMesh(mesh, geometry.DefaultLayout())
	}

	store, err := geometry.NewStore(b)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	logger.Infof("loaded %s: %d vertices, %d triangles, %d materials",
		path, store.VertexCount(), store.TriangleCount(), store.MaterialCount())

	return &scene{
		name:    sceneName(path),
		buffers: b,
		store:   store,
	}, nil
}

func sceneName(path string) string {
	if name, ok := strings.CutPrefix(path, "builtin:"); ok {
		return name
	}
	return filepath.Base(path)
}

// stats renders the scene summary table.
func (s *scene) stats() string {
	lo, hi := s.store.Bounds()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Asset", "Count", "Size"})
	table.Append([]string{"Vertices", fmt.Sprint(s.store.VertexCount()), byteSize(4 * len(s.buffers.Vertices))})
	table.Append([]string{"Triangles", fmt.Sprint(s.store.TriangleCount()), byteSize(4 * len(s.buffers.Indices))})
	table.Append([]string{"Materials", fmt.Sprint(s.store.MaterialCount()), byteSize(4 * len(s.buffers.Materials))})
	table.SetFooter([]string{"Bounds", formatVec(lo), formatVec(hi)})
	table.Render()
	return buf.String()
}

func formatVec(v math3d.Vec3) string {
	return fmt.Sprintf("(%.3g, %.3g, %.3g)", v.X, v.Y, v.Z)
}

func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <scene>",
		Short: "Print scene statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
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
			logger.Noticef("scene information for %s:\n%s", s.name, s.stats())
			return nil
		},
	}
}

func newBakeCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "bake <scene>",
		Short: "Flatten a scene into a raw .bin buffer snapshot",
		Long: "bake loads a scene once and writes its vertex, index and material " +
			"buffers in host byte order so later runs skip asset parsing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
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
			if out == "" {
				out = strings.TrimSuffix(s.name, filepath.Ext(s.name)) + ".bin"
			}
			n, err := writeSnapshot(out, &s.buffers)
			if err != nil {
				return err
			}
			logger.Noticef("wrote %s (%s)\n%s", out, byteSize(int(n)), s.stats())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <scene>.bin)")
	return cmd
}

func writeSnapshot(path string, b *geometry.Buffers) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	w := bufio.NewWriter(f)
	n, err := b.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
