package kartmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// nlerpThreshold is the cosine above which two rotations are close enough
// that normalized lerp is used instead of slerp.
const nlerpThreshold = 0.9995

// Slerp spherically interpolates from one rotation to another along the
// shortest arc. Unlike mgl64.QuatSlerp it flips the target into the same
// hemisphere first. t is not clamped, so values outside [0, 1] continue
// along the same great circle.
func Slerp(from, to mgl64.Quat, t float64) mgl64.Quat {
	from, to = from.Normalize(), to.Normalize()

	cos := from.Dot(to)
	if cos < 0 {
		to = to.Scale(-1)
		cos = -cos
	}

	if cos > nlerpThreshold {
		return mgl64.QuatNlerp(from, to, t)
	}

	theta := math.Acos(math.Min(cos, 1))
	sin := math.Sin(theta)
	a := math.Sin((1-t)*theta) / sin
	b := math.Sin(t*theta) / sin

	return from.Scale(a).Add(to.Scale(b)).Normalize()
}

// SameRotation reports whether two quaternions describe the same rotation
// within eps, treating q and -q as equal.
func SameRotation(a, b mgl64.Quat, eps float64) bool {
	return math.Abs(a.Normalize().Dot(b.Normalize())) >= 1-eps
}
