// Package gesture classifies raw viewport input into semantic actions:
// pan, pinch, wheel zoom, double-tap zoom, and annotation gestures. The
// router is the only writer of the view transform during interaction.
package gesture

import (
	"pageflow/pkg/geometry"
)

// PointerID distinguishes simultaneous pointers (fingers, mouse).
type PointerID int

// Button identifies which button a pointer event carries.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModMeta
	ModShift
	ModAlt
)

// HasZoomKey reports whether the pinch-on-trackpad indicator is held.
// Both ctrl and the platform command key count, matching how trackpad
// pinches are delivered across platforms.
func (m Modifier) HasZoomKey() bool {
	return m&(ModCtrl|ModMeta) != 0
}

// TargetRole says what kind of element sits under a pointer press.
// Presses on interactive controls never start viewport gestures.
type TargetRole int

const (
	TargetContent TargetRole = iota
	TargetControl
)

// PointerEvent is a press, move, release, or cancel of one pointer on
// the viewport surface. Pos is in screen space.
type PointerEvent struct {
	ID     PointerID
	Pos    geometry.Point2D
	Button Button
	Mod    Modifier
	Target TargetRole
}

// WheelEvent is a wheel or trackpad scroll. Deltas follow the web
// convention: positive DeltaY means scroll down, and zooming in arrives
// as negative DeltaY with the zoom key held.
type WheelEvent struct {
	Pos    geometry.Point2D
	DeltaX float64
	DeltaY float64
	Mod    Modifier
}

// PinchPhase orders the lifecycle of a platform pinch gesture.
type PinchPhase int

const (
	PinchBegin PinchPhase = iota
	PinchChange
	PinchEnd
)

// PinchEvent is a platform-delivered pinch (the gesturestart/change/end
// shape some hosts emit instead of multi-touch pointers). Scale is the
// cumulative factor since PinchBegin; Pos is the focal point.
type PinchEvent struct {
	Phase PinchPhase
	Scale float64
	Pos   geometry.Point2D
}

// Phase orders the lifecycle of an annotation gesture. A cancelled
// gesture ends with PhaseCancel instead of PhaseEnd and must not be
// committed.
type Phase int

const (
	PhaseBegin Phase = iota
	PhaseMove
	PhaseEnd
	PhaseCancel
)

// ToolMode selects how a press on the page surface is interpreted.
type ToolMode int

const (
	ToolSelect ToolMode = iota
	ToolPan
	ToolDraw
	ToolHighlight
	ToolErase
)

// String returns the mode name used in preferences and status display.
func (m ToolMode) String() string {
	switch m {
	case ToolSelect:
		return "select"
	case ToolPan:
		return "pan"
	case ToolDraw:
		return "draw"
	case ToolHighlight:
		return "highlight"
	case ToolErase:
		return "erase"
	}
	return "unknown"
}

// ToolModeFromString parses a mode name, defaulting to pan.
func ToolModeFromString(s string) ToolMode {
	switch s {
	case "select":
		return ToolSelect
	case "draw":
		return ToolDraw
	case "highlight":
		return ToolHighlight
	case "erase":
		return ToolErase
	}
	return ToolPan
}
