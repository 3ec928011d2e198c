package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFlyCameraForward(t *testing.T) {
	c := newFlyCamera(6360, 1)
	assert.True(t, c.forward().ApproxEqual(mgl32.Vec3{0, 0, -1}))

	c.Yaw = 90
	assert.True(t, c.forward().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-6))
}

func TestFlyCameraUpdate(t *testing.T) {
	tests := []struct {
		name  string
		in    controls
		check func(t *testing.T, c *flyCamera)
	}{
		{
			name: "moves forward at speed",
			in:   controls{Move: mgl32.Vec3{0, 0, 1}},
			check: func(t *testing.T, c *flyCamera) {
				assert.InDelta(t, -0.5, c.Position.Z(), 1e-5)
			},
		},
		{
			name: "pitch is clamped",
			in:   controls{Look: mgl32.Vec2{0, -1e4}},
			check: func(t *testing.T, c *flyCamera) {
				assert.Equal(t, float32(89), c.Pitch)
			},
		},
		{
			name: "stays above the ground",
			in:   controls{Move: mgl32.Vec3{0, -1, 0}},
			check: func(t *testing.T, c *flyCamera) {
				assert.InDelta(t, c.MinRadius, c.Position.Len(), 1e-2)
			},
		},
		{
			name: "sun elevation is clamped",
			in:   controls{Sun: mgl32.Vec2{0, 1e3}},
			check: func(t *testing.T, c *flyCamera) {
				assert.Equal(t, float32(90), c.SunElevation)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFlyCamera(6360, 0.1)
			c.update(tt.in, 0.5)
			tt.check(t, c)
		})
	}
}

func TestFlyCameraIgnoresZeroStep(t *testing.T) {
	c := newFlyCamera(6360, 1)
	before := *c
	c.update(controls{Move: mgl32.Vec3{1, 1, 1}, Look: mgl32.Vec2{5, 5}}, 0)
	assert.Equal(t, before, *c)
}

func TestFlyCameraDrawParameters(t *testing.T) {
	c := newFlyCamera(6360, 1)
	c.SunElevation = 90
	p := c.drawParameters(16.0 / 9)
	assert.Equal(t, c.Position, p.CameraPosition)
	assert.True(t, p.SunDirection.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6))
	assert.NotEqual(t, mgl32.Mat4{}, p.InverseViewProj)
}
