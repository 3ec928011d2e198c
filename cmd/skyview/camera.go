package main

import (
	"math"

	"github.com/gekko3d/atmosphere"
	"github.com/go-gl/mathgl/mgl32"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// controls is the input sampled for one frame.
type controls struct {
	Move mgl32.Vec3 // right, up, forward in [-1, 1]
	Look mgl32.Vec2 // cursor delta in pixels
	Sun  mgl32.Vec2 // azimuth, elevation change in [-1, 1]
}

// flyCamera is a yaw/pitch camera in the planet frame, in km. The planet
// center is the origin and the camera starts above the north pole.
type flyCamera struct {
	Position    mgl32.Vec3
	Yaw, Pitch  float32 // degrees
	Speed       float32 // km/s
	Sensitivity float32 // degrees per pixel
	MinRadius   float32

	SunAzimuth   float32 // degrees
	SunElevation float32 // degrees
	SunSpeed     float32 // degrees/s

	FovY float32 // radians
}

func newFlyCamera(bottomRadius, altitude float32) *flyCamera {
	return &flyCamera{
		Position:     mgl32.Vec3{0, bottomRadius + altitude, 0},
		Speed:        1,
		Sensitivity:  0.1,
		MinRadius:    bottomRadius + 0.001,
		SunElevation: 10,
		SunSpeed:     20,
		FovY:         mgl32.DegToRad(60),
	}
}

func (c *flyCamera) forward() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	return mgl32.Vec3{
		float32(math.Sin(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(-math.Cos(yaw) * math.Cos(pitch)),
	}.Normalize()
}

func (c *flyCamera) sunDirection() mgl32.Vec3 {
	az := float64(mgl32.DegToRad(c.SunAzimuth))
	el := float64(mgl32.DegToRad(c.SunElevation))
	return mgl32.Vec3{
		float32(math.Sin(az) * math.Cos(el)),
		float32(math.Sin(el)),
		float32(-math.Cos(az) * math.Cos(el)),
	}
}

func (c *flyCamera) update(in controls, dt float32) {
	if dt <= 0 {
		return
	}
	c.Yaw += in.Look[0] * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch-in.Look[1]*c.Sensitivity, -89, 89)

	c.SunAzimuth += in.Sun[0] * c.SunSpeed * dt
	c.SunElevation = mgl32.Clamp(c.SunElevation+in.Sun[1]*c.SunSpeed*dt, -90, 90)

	forward := c.forward()
	right := forward.Cross(worldUp).Normalize()
	move := right.Mul(in.Move[0]).Add(worldUp.Mul(in.Move[1])).Add(forward.Mul(in.Move[2]))
	if move.Len() > 0 {
		c.Position = c.Position.Add(move.Normalize().Mul(c.Speed * dt))
	}
	switch r := c.Position.Len(); {
	case r == 0:
		c.Position = worldUp.Mul(c.MinRadius)
	case r < c.MinRadius:
		c.Position = c.Position.Mul(c.MinRadius / r)
	}
}

func (c *flyCamera) drawParameters(aspect float32) atmosphere.DrawParameters {
	return atmosphere.DrawParametersFromCamera(
		c.Position, c.Position.Add(c.forward()), worldUp,
		c.FovY, aspect, 0.01, 1e5, c.sunDirection())
}
