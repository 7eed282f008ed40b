// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package viewport

// Transform describes the camera over a floor plan: the plan coordinate
// at the view centre and a uniform scale factor.
type Transform struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Scale   float64 `json:"scale"`
}

// DetailLevel selects how much per-desk decoration is rendered at the
// current zoom.
type DetailLevel string

const (
	// DetailCompact renders desks as status-colored shapes only.
	DetailCompact DetailLevel = "compact"

	// DetailFull adds occupant names and desk labels.
	DetailFull DetailLevel = "full"
)

// Bounds are the extents of the rendered floor plan.
type Bounds struct {
	Width  float64
	Height float64
}

// ClampScale bounds a requested scale to the configured zoom range.
func ClampScale(scale, min, max float64) float64 {
	if scale < min {
		return min
	}
	if scale > max {
		return max
	}
	return scale
}

// ClampCenter keeps the camera centre within the floor plan so panning
// cannot strand the view in empty space. Plans smaller than the view
// still clamp to their own extent.
func ClampCenter(t Transform, b Bounds) Transform {
	t.CenterX = clampAxis(t.CenterX, b.Width)
	t.CenterY = clampAxis(t.CenterY, b.Height)
	return t
}

func clampAxis(v, extent float64) float64 {
	if extent <= 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > extent {
		return extent
	}
	return v
}

// DetailFor maps a scale to a detail level against the configured
// threshold. At or above the threshold the full rendering is used.
func DetailFor(scale, threshold float64) DetailLevel {
	if scale >= threshold {
		return DetailFull
	}
	return DetailCompact
}
