package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// Plane selects which two coordinates of a 3D point are drawn.
type Plane int

const (
	PlaneXZ Plane = iota // front view
	PlaneYZ              // side view
	PlaneXY              // top view
)

func (p Plane) Project(v dynamo.Vec3) (float64, float64) {
	switch p {
	case PlaneYZ:
		return v.Y, v.Z
	case PlaneXY:
		return v.X, v.Y
	default:
		return v.X, v.Z
	}
}

// ParsePlane maps "xz", "yz" or "xy" to a Plane.
func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(s) {
	case "xz", "":
		return PlaneXZ, nil
	case "yz":
		return PlaneYZ, nil
	case "xy":
		return PlaneXY, nil
	}
	return PlaneXZ, fmt.Errorf("unknown plane %q (want xz, yz or xy)", s)
}

// StateToSVG draws the bob 2 trail, both rods and the bobs of s projected
// onto plane. The view is fitted to the reach of the rods so the pivot
// stays centred.
func StateToSVG(s dynamo.State, p dynamo.Params, plane Plane, width, height int, strokeColor string) string {
	reach := 1.1 * (p.L1 + p.L2)
	if reach <= 0 {
		reach = 1
	}
	minDim := float64(width)
	if float64(height) < minDim {
		minDim = float64(height)
	}
	scale := minDim / (2 * reach)

	toScreen := func(v dynamo.Vec3) (float64, float64) {
		a, b := plane.Project(v)
		return float64(width)/2 + a*scale, float64(height)/2 - b*scale
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if len(s.Trail) >= 2 {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" stroke-opacity="0.7" d="M`, strokeColor))
		// Oldest first so the path runs forward in time.
		for i := len(s.Trail) - 1; i >= 0; i-- {
			x, y := toScreen(s.Trail[i])
			if i == len(s.Trail)-1 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	ox, oy := toScreen(dynamo.Vec3{})
	x1, y1 := toScreen(s.P1)
	x2, y2 := toScreen(s.P2)
	sb.WriteString(fmt.Sprintf(`<polyline fill="none" stroke="#dddddd" stroke-width="2" points="%.1f,%.1f %.1f,%.1f %.1f,%.1f"/>
`, ox, oy, x1, y1, x2, y2))
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="#888888"/>
<circle cx="%.1f" cy="%.1f" r="6" fill="#00ccff"/>
<circle cx="%.1f" cy="%.1f" r="8" fill="#ff00ff"/>
`, ox, oy, x1, y1, x2, y2))

	sb.WriteString("</svg>")
	return sb.String()
}

func (p Plane) String() string {
	switch p {
	case PlaneYZ:
		return "yz"
	case PlaneXY:
		return "xy"
	default:
		return "xz"
	}
}
