package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/sunlit/pkg/config"
	"github.com/taigrr/sunlit/pkg/log"
	"github.com/taigrr/sunlit/pkg/pathtrace"
	"github.com/taigrr/sunlit/pkg/render"
)

const (
	dragSensitivity = 0.03
	keyTorque       = 3.0
	zoomStep        = 1.1
	maxZoomOut      = 20

	// restVelocity is the angular speed per tick below which an axis
	// stops, so a coasting camera settles and accumulation can resume.
	restVelocity = 1e-4
)

const viewHelp = `Controls:
  Mouse drag  - Orbit the camera
  Scroll      - Zoom in/out
  W/S/A/D     - Pitch and yaw
  P           - Toggle raster preview / path tracing
  R           - Reset view and accumulation
  X           - Toggle wireframe overlay
  B           - Toggle scene bounds
  ?           - Toggle HUD overlay
  +/-         - Adjust zoom
  Esc         - Quit`

// OrbitAxis tracks an angle and its velocity; a critically damped spring
// pulls the velocity back to zero so the camera coasts to a stop.
type OrbitAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

// NewOrbitAxis creates a resting axis updated fps times per second.
func NewOrbitAxis(fps int) OrbitAxis {
	return OrbitAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update advances the angle by one tick.
func (a *OrbitAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
	if math.Abs(a.Velocity) < restVelocity {
		a.Velocity, a.velAccel = 0, 0
	}
}

// Orbit is the spring-driven yaw and pitch added to the framed camera.
type Orbit struct {
	Yaw, Pitch OrbitAxis
	fps        int
}

func NewOrbit(fps int) *Orbit {
	return &Orbit{
		Yaw:   NewOrbitAxis(fps),
		Pitch: NewOrbitAxis(fps),
		fps:   fps,
	}
}

func (o *Orbit) Update() {
	o.Yaw.Update()
	o.Pitch.Update()
}

func (o *Orbit) ApplyImpulse(yaw, pitch float64) {
	o.Yaw.Velocity += yaw
	o.Pitch.Velocity += pitch
}

func (o *Orbit) Reset() {
	o.Yaw = NewOrbitAxis(o.fps)
	o.Pitch = NewOrbitAxis(o.fps)
}

// ViewMode selects the renderer of the viewer.
type ViewMode int

const (
	ViewRaster ViewMode = iota // Gouraud preview
	ViewPath                   // Progressive path tracing
)

func (m ViewMode) String() string {
	if m == ViewPath {
		return "path"
	}
	return "raster"
}

// ViewState holds the toggles of the viewer.
type ViewState struct {
	Mode      ViewMode
	Wireframe bool
	Bounds    bool
	ShowHUD   bool
}

// HUD draws the overlay rows: FPS, scene name, triangle count, mode and
// accumulated frames.
type HUD struct {
	name      string
	triangles int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

func NewHUD(name string, triangles int) *HUD {
	return &HUD{name: name, triangles: triangles, fpsTime: time.Now()}
}

// UpdateFPS counts one presented frame.
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Draw renders the HUD onto the top and bottom rows of area.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle, state ViewState, session *pathtrace.Session) {
	const (
		reset    = "\x1b[0m"
		bold     = "\x1b[1m"
		dim      = "\x1b[2m"
		bgBlack  = "\x1b[40m"
		fgWhite  = "\x1b[97m"
		fgGreen  = "\x1b[92m"
		fgYellow = "\x1b[93m"
		fgCyan   = "\x1b[96m"
	)
	if !state.ShowHUD || area.Dx() == 0 || area.Dy() == 0 {
		return
	}
	top, bottom := area.Min.Y, area.Max.Y-1

	label := func(x, y int, s string) {
		ss := uv.NewStyledString(s)
		ss.Draw(scr, uv.Rect(x, y, min(ss.UnicodeWidth(), area.Max.X-x), 1))
	}
	width := area.Dx()

	label(area.Min.X, top, fmt.Sprintf("%s%s %.0f FPS %s", bgBlack, fgGreen, h.fps, reset))
	label(area.Min.X+max((width-len(h.name)-2)/2, 0), top, fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.name, reset))
	tris := fmt.Sprintf(" %d tris ", h.triangles)
	label(area.Min.X+max(width-len(tris), 0), top, fmt.Sprintf("%s%s%s%s%s", bgBlack, fgCyan, bold, tris, reset))

	status := fmt.Sprintf("%s%s [%s] ", bgBlack, fgWhite, state.Mode)
	if state.Mode == ViewPath {
		switch {
		case session == nil:
		case session.Converged():
			status += fmt.Sprintf("%sconverged at %d frames ", fgYellow, session.Frame())
		default:
			status += fmt.Sprintf("frame %d ", session.Frame())
		}
	}
	label(area.Min.X, bottom, status+reset)
	hint := " p: path/raster  r: reset "
	label(area.Min.X+max(width-len(hint), 0), bottom, fmt.Sprintf("%s%s%s%s%s", bgBlack, dim, fgYellow, hint, reset))
}

// viewer owns the terminal canvas and both renderers of one scene.
type viewer struct {
	scene *scene
	cfg   config.Config

	camera     *render.Camera
	fb         *render.Framebuffer
	rasterizer *render.Rasterizer
	wireframe  *render.Wireframe
	session    *pathtrace.Session

	baseYaw, basePitch, baseDistance float64
	homeDistance                     float64
	orbit                            *Orbit
	state                            ViewState
	hud                              *HUD
}

func newViewer(s *scene, cfg config.Config, fps int) *viewer {
	v := &viewer{
		scene:  s,
		cfg:    cfg,
		camera: render.NewCamera(),
		orbit:  NewOrbit(fps),
		hud:    NewHUD(s.name, s.store.TriangleCount()),
	}
	v.camera.Frame(s.store.Bounds())
	v.baseYaw, v.basePitch, v.baseDistance = v.camera.Yaw, v.camera.Pitch, v.camera.Distance
	v.homeDistance = v.baseDistance
	v.camera.SetClipPlanes(v.camera.Near, v.homeDistance*maxZoomOut*2)
	return v
}

// resize reallocates everything tied to the canvas size. A terminal cell
// holds two framebuffer rows.
func (v *viewer) resize(cols, rows int) error {
	w, h := max(cols, 1), max(rows*2, 1)
	v.fb = render.NewFramebuffer(w, h)
	v.rasterizer = render.NewRasterizer(v.camera, v.fb)
	v.wireframe = render.NewWireframe(v.camera, v.fb)
	v.camera.SetAspectRatio(float64(w) / float64(h))

	r, err := pathtrace.NewRenderer(v.scene.store, w, h, v.cfg.PathTrace())
	if err != nil {
		return err
	}
	v.session = pathtrace.NewSession(r, uint32(v.cfg.MaxFrames))
	logger.Debugf("canvas resized to %dx%d", w, h)
	return nil
}

func (v *viewer) reset() {
	v.orbit.Reset()
	v.baseDistance = v.homeDistance
	v.session.Reset()
}

func (v *viewer) zoom(factor float64) {
	v.baseDistance = min(max(v.baseDistance*factor, 1e-3), v.homeDistance*maxZoomOut)
}

// frame advances the orbit and redraws the framebuffer.
func (v *viewer) frame(ctx context.Context) error {
	v.orbit.Update()
	v.camera.SetOrbit(
		v.baseYaw+v.orbit.Yaw.Position,
		v.basePitch+v.orbit.Pitch.Position,
		v.baseDistance,
	)

	sun := v.cfg.PathTrace().Sun.Direction
	switch v.state.Mode {
	case ViewPath:
		if _, _, err := v.session.Step(ctx, v.camera.CameraToWorld(), v.camera.InverseProjection()); err != nil {
			return err
		}
		v.fb.Blit(v.session.Renderer().Buffer(), v.cfg.Gamma)
	default:
		v.fb.Clear(render.ColorSky)
		v.rasterizer.ClearDepth()
		v.rasterizer.DrawStore(v.scene.store, sun)
	}

	if v.state.Wireframe {
		v.wireframe.DrawStore(v.scene.store, render.ColorWireframe)
	}
	if v.state.Bounds {
		lo, hi := v.scene.store.Bounds()
		v.wireframe.DrawBounds(render.NewAABB(lo, hi), render.ColorBounds)
		v.wireframe.DrawAxes(v.camera.Target, hi.Sub(lo).Len()/4)
	}
	return nil
}

// handle applies one terminal event. It reports false when the viewer
// should quit.
func (v *viewer) handle(ev uv.Event, term *uv.Terminal, input *viewInput) (bool, error) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		term.Erase()
		if err := term.Resize(ev.Width, ev.Height); err != nil {
			return false, err
		}
		if err := v.resize(ev.Width, ev.Height); err != nil {
			return false, err
		}

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c"):
			return false, nil
		case ev.MatchString("w", "up"):
			input.pitch = keyTorque
		case ev.MatchString("s", "down"):
			input.pitch = -keyTorque
		case ev.MatchString("a", "left"):
			input.yaw = -keyTorque
		case ev.MatchString("d", "right"):
			input.yaw = keyTorque
		case ev.MatchString("+", "="):
			v.zoom(1 / zoomStep)
		case ev.MatchString("-", "_"):
			v.zoom(zoomStep)
		case ev.MatchString("p"):
			if v.state.Mode == ViewPath {
				v.state.Mode = ViewRaster
			} else {
				v.state.Mode = ViewPath
				v.session.Reset()
			}
		case ev.MatchString("r"):
			v.reset()
		case ev.MatchString("x"):
			v.state.Wireframe = !v.state.Wireframe
		case ev.MatchString("b"):
			v.state.Bounds = !v.state.Bounds
		case ev.MatchString("?", "shift+/"):
			v.state.ShowHUD = !v.state.ShowHUD
		}

	case uv.KeyReleaseEvent:
		switch {
		case ev.MatchString("w", "up", "s", "down"):
			input.pitch = 0
		case ev.MatchString("a", "left", "d", "right"):
			input.yaw = 0
		}

	case uv.MouseClickEvent:
		input.dragging = true
		input.lastX, input.lastY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		input.dragging = false

	case uv.MouseMotionEvent:
		if input.dragging {
			dx, dy := ev.X-input.lastX, ev.Y-input.lastY
			v.orbit.ApplyImpulse(float64(dx)*dragSensitivity, float64(dy)*dragSensitivity)
			input.lastX, input.lastY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.zoom(1 / zoomStep)
		case uv.MouseWheelDown:
			v.zoom(zoomStep)
		}
	}
	return true, nil
}

// viewInput is the pointer and key state between events.
type viewInput struct {
	yaw, pitch   float64
	dragging     bool
	lastX, lastY int
}

// decay fades held torque; key release events are unreliable.
func (in *viewInput) decay() {
	in.yaw *= 0.9
	in.pitch *= 0.9
	if math.Abs(in.yaw) < 1e-3 {
		in.yaw = 0
	}
	if math.Abs(in.pitch) < 1e-3 {
		in.pitch = 0
	}
}

func newViewCmd(opts *options) *cobra.Command {
	var fps int

	cmd := &cobra.Command{
		Use:   "view <scene>",
		Short: "Explore a scene in the terminal",
		Long: "view shows a scene on a half-block terminal canvas. The raster preview " +
			"follows the camera at full speed; path mode accumulates frames while the " +
			"camera rests and restarts whenever it moves.\n\n" + viewHelp,
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
			if opts.logFile == "" {
				log.SetSink(io.Discard)
			}

			s, err := loadScene(args[0])
			if err != nil {
				return err
			}
			return runViewer(cmd.Context(), newViewer(s, cfg, fps), fps)
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 30, "target frames per second")
	return cmd
}

func runViewer(ctx context.Context, v *viewer, fps int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term := uv.DefaultTerminal()
	cols, rows, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	if err := term.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize terminal: %w", err)
	}
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // SGR extended mouse mode

	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	if err := v.resize(cols, rows); err != nil {
		return err
	}
	input := &viewInput{}
	events := term.Events()

	targetDuration := time.Second / time.Duration(max(fps, 1))
	lastFrame := time.Now()

	for {
		// Drain pending input before drawing so the frame sees it all.
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				keep, err := v.handle(ev, term, input)
				if err != nil {
					return err
				}
				if !keep {
					return nil
				}
			default:
				break drain
			}
		}

		now := time.Now()
		dt := math.Min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now

		v.orbit.ApplyImpulse(input.yaw*dt, input.pitch*dt)
		input.decay()

		if err := v.frame(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		term.Draw(uv.DrawableFunc(func(scr uv.Screen, area uv.Rectangle) {
			v.fb.Draw(scr, area)
			v.hud.Draw(scr, area, v.state, v.session)
		}))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}
		v.hud.UpdateFPS()

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
