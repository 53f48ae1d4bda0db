// Package model defines the authored show document: cues, their
// parameters, and the settings block that travels with them.
package model

import "math"

// Easing names a curve shape for a volume ramp (fade-in, fade-out, or a
// SetLevels tween). It round-trips through the show file and the
// websocket wire format as the same string.
type Easing string

const (
	EasingLinear          Easing = "LINEAR"
	EasingInOutCubic      Easing = "EASE_IN_OUT_CUBIC"
	EasingInOutSine       Easing = "EASE_IN_OUT_SINE"
	EasingOutExponential  Easing = "EASE_OUT_EXPONENTIAL"
	EasingBezier          Easing = "BEZIER"
	EasingSCurve          Easing = "S_CURVE"
)

// Apply maps a linear progress value in [0,1] through the easing curve.
func (e Easing) Apply(progress float64) float64 {
	switch e {
	case EasingLinear:
		return progress

	case EasingInOutCubic:
		if progress < 0.5 {
			return 4 * progress * progress * progress
		}
		temp := -2*progress + 2
		return 1 - temp*temp*temp/2

	case EasingInOutSine:
		return -(math.Cos(math.Pi*progress) - 1) / 2

	case EasingOutExponential:
		if progress >= 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*progress)

	case EasingBezier:
		return cubicBezier(0.42, 0, 0.58, 1, progress)

	case EasingSCurve:
		const steepness = 10.0
		return 1 / (1 + math.Exp(-steepness*(progress-0.5)))

	default:
		return progress
	}
}

// cubicBezier evaluates a simplified cubic bezier curve's y value for a
// given t, using only the two control points' y coordinates.
func cubicBezier(p1x, p1y, p2x, p2y, t float64) float64 {
	_ = p1x
	_ = p2x

	cy := 3 * p1y
	by := 3*(p2y-p1y) - cy
	ay := 1 - cy - by

	tSquared := t * t
	tCubed := tSquared * t

	return ay*tCubed + by*tSquared + cy*t
}

// Interpolate computes the eased value between start and end at the
// given linear progress in [0,1]. An empty easing defaults to
// EASE_IN_OUT_SINE, matching the show file's default fade curve.
func Interpolate(start, end, progress float64, easing Easing) float64 {
	if easing == "" {
		easing = EasingInOutSine
	}
	return start + (end-start)*easing.Apply(progress)
}
