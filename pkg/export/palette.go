package export

import (
	"fmt"
	"image/color"

	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

var (
	colorUnresolved    = color.RGBA{0xe5, 0x39, 0x35, 0xff}
	colorRecovered     = color.RGBA{0x9e, 0x9e, 0x9e, 0xff}
	colorRootCause     = color.RGBA{0xfb, 0x8c, 0x00, 0xff}
	colorFeedbackRoot  = color.RGBA{0x8e, 0x24, 0xaa, 0xff}
	colorDefault       = color.RGBA{0x1e, 0x88, 0xe5, 0xff}
	colorBadge         = color.RGBA{0x37, 0x47, 0x4f, 0xff}
	colorStroke        = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText          = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle        = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorGrid          = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	colorBackdrop      = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG      = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG      = color.RGBA{0xee, 0xee, 0xee, 0xff}
	colorSelection     = color.RGBA{0x42, 0x85, 0xf4, 0xff}
	colorSelectionFill = color.NRGBA{0x42, 0x85, 0xf4, 0x40}
)

// roleColor maps a bar role to its fill: red for unresolved, gray for
// recovered, highlighted colors for root causes.
func roleColor(r timeline.BarRole) color.RGBA {
	switch r {
	case timeline.RoleUnresolved:
		return colorUnresolved
	case timeline.RoleRecovered:
		return colorRecovered
	case timeline.RoleRootCause:
		return colorRootCause
	case timeline.RoleFeedbackRoot:
		return colorFeedbackRoot
	default:
		return colorDefault
	}
}

// RoleHex returns the CSS hex color for a role.
func RoleHex(r timeline.BarRole) string {
	return css(roleColor(r))
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
