package blackhole

import (
	"fmt"

	"github.com/pkg/errors"
)

// Scene fills a batcher with the bodies to draw.
type Scene interface {
	Populate(b *Batcher) error
}

const (
	gridSize    = 10
	gridSpacing = 0.075
	gridOrigin  = -0.5
	gridRadius  = 0.05
)

// GridScene is a square grid of equally sized blue circles.
type GridScene struct {
	N          int
	Radius     float32
	Resolution int
}

// Populate registers the grid in row-major order, keyed "N i j".
func (g GridScene) Populate(b *Batcher) error {
	for i := 0; i < g.N; i++ {
		for j := 0; j < g.N; j++ {
			x := gridSpacing*float32(i) + gridOrigin
			y := gridSpacing*float32(j) + gridOrigin
			body := NewSphere(x, y, g.Radius, Vec3{0, 0, 1}, g.Resolution)
			if err := b.RegisterBody(fmt.Sprintf("%d %d %d", g.N, i, j), body); err != nil {
				return errors.Wrap(classify(err, ErrSetup), "grid scene")
			}
		}
	}
	return nil
}

// BodiesScene draws the bodies listed in a config file.
type BodiesScene struct {
	Bodies []BodyConfig
	// Resolution is used by spheres that do not set their own.
	Resolution int
}

func (s BodiesScene) Populate(b *Batcher) error {
	for i, bc := range s.Bodies {
		var body RigidBody
		color := Vec3(bc.Color)
		switch bc.Kind {
		case "sphere":
			res := bc.Resolution
			if res == 0 {
				res = s.Resolution
			}
			body = NewSphere(bc.X, bc.Y, bc.Size, color, res)
		case "square":
			body = NewSquare(bc.X, bc.Y, bc.Size, color)
		default:
			return errors.Wrapf(ErrSetup, "body %d: unknown kind %q", i, bc.Kind)
		}
		if err := b.RegisterBody(fmt.Sprintf("%s %d", bc.Kind, i), body); err != nil {
			return errors.Wrap(classify(err, ErrSetup), "bodies scene")
		}
	}
	return nil
}

// SceneFor picks the configured bodies when there are any and the default
// grid otherwise.
func SceneFor(cfg Config) Scene {
	if len(cfg.Bodies) > 0 {
		return BodiesScene{Bodies: cfg.Bodies, Resolution: cfg.SphereResolution}
	}
	return GridScene{N: gridSize, Radius: gridRadius, Resolution: cfg.SphereResolution}
}
