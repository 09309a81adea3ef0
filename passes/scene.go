// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

// Scene is the per-frame state passes read while rendering. Its owner
// updates it between frames; passes never write it.
type Scene struct {
	// ViewProjection maps world space to clip space (column-major).
	ViewProjection [16]float32
	// InverseViewProjection maps clip space back to world space.
	InverseViewProjection [16]float32

	// LightDirection points from the light into the scene.
	LightDirection [3]float32

	// Time is the scene time in seconds.
	Time float32
}

// NewScene returns a scene with identity camera matrices and a light
// shining down.
func NewScene() *Scene {
	return &Scene{
		ViewProjection:        Identity,
		InverseViewProjection: Identity,
		LightDirection:        [3]float32{-0.3, -1, -0.5},
	}
}

// SetCamera sets the camera matrices of the next frame.
func (s *Scene) SetCamera(viewProj, inverse [16]float32) {
	s.ViewProjection = viewProj
	s.InverseViewProjection = inverse
}
