package pathtrace

import (
	"context"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// DefaultMaxFrames is the frame count after which a still camera stops
// accumulating.
const DefaultMaxFrames = 256

// cameraEpsilon is the largest matrix element change that does not count
// as camera movement.
const cameraEpsilon = 1e-9

// Session owns the frame counter of a Renderer. The counter restarts from
// 0 whenever the camera moves or Reset is called, which makes the next
// frame overwrite the buffer.
type Session struct {
	renderer  *Renderer
	frame     uint32
	maxFrames uint32

	cameraToWorld     math3d.Mat4
	inverseProjection math3d.Mat4
	hasCamera         bool
}

// NewSession wraps r. maxFrames of 0 accumulates forever.
func NewSession(r *Renderer, maxFrames uint32) *Session {
	return &Session{renderer: r, maxFrames: maxFrames}
}

// Renderer returns the wrapped renderer.
func (s *Session) Renderer() *Renderer {
	return s.renderer
}

// Frame returns the index the next rendered frame will use, which is also
// the number of frames accumulated so far.
func (s *Session) Frame() uint32 {
	return s.frame
}

// Converged reports whether the frame budget is used up.
func (s *Session) Converged() bool {
	return s.maxFrames > 0 && s.frame >= s.maxFrames
}

// Reset restarts accumulation on the next Step.
func (s *Session) Reset() {
	if s.frame != 0 {
		logger.Debugf("accumulation reset after %d frames", s.frame)
	}
	s.frame = 0
}

// Step renders the next frame for the given camera. It reports false
// without rendering once the session has converged. A failed frame resets
// the session, since its tiles may hold a mix of old and new samples.
func (s *Session) Step(ctx context.Context, cameraToWorld, inverseProjection math3d.Mat4) (FrameStats, bool, error) {
	if !s.hasCamera ||
		!s.cameraToWorld.ApproxEqual(cameraToWorld, cameraEpsilon) ||
		!s.inverseProjection.ApproxEqual(inverseProjection, cameraEpsilon) {
		s.cameraToWorld = cameraToWorld
		s.inverseProjection = inverseProjection
		s.hasCamera = true
		s.Reset()
	}

	if s.Converged() {
		return FrameStats{Frame: s.frame}, false, nil
	}

	stats, err := s.renderer.RenderFrame(ctx, FrameParams{
		Frame:             s.frame,
		CameraToWorld:     cameraToWorld,
		InverseProjection: inverseProjection,
	})
	if err != nil {
		s.Reset()
		return stats, false, err
	}

	s.frame++
	if s.Converged() {
		logger.Infof("converged after %d frames", s.frame)
	}
	return stats, true, nil
}
