package placement

import (
	"github.com/menta2k/frame-compositor/pkg/geometry"
)

// State of the placement controller
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Cursor is the pointer affordance the UI should show
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrab
	CursorGrabbing
)

func (c Cursor) String() string {
	switch c {
	case CursorGrab:
		return "grab"
	case CursorGrabbing:
		return "grabbing"
	default:
		return "default"
	}
}

// EventKind distinguishes pointer events
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerCancel
	PointerLeave
)

// PointerEvent is a device-independent pointer input. Mouse and touch input
// both map onto it.
type PointerEvent struct {
	Kind EventKind
	// Pos is in display pixels of the render target the pointer is over.
	Pos geometry.Point
	// Touches is the number of simultaneous touch points; 0 for a mouse.
	Touches int
	// Primary is set for the primary mouse button. Single-finger touches are
	// always treated as primary.
	Primary bool
}

func (e PointerEvent) primary() bool {
	return e.Primary || e.Touches == 1
}

// Update is the outcome of handling one pointer event
type Update struct {
	Settings Settings
	Changed  bool
	State    State
	Cursor   Cursor
}

// Controller turns pointer and zoom input into placement changes.
// It is not safe for concurrent use; drive it from one event loop.
type Controller struct {
	frame    geometry.Size
	limits   Limits
	defaults Settings

	settings Settings
	state    State
	cursor   Cursor

	dragStartPointer   geometry.Point
	dragStartPlacement Settings
}

// NewController creates a controller for a frame of the given native size.
// The initial placement is clamped and remembered as the reset target.
func NewController(frame geometry.Size, initial Settings, limits Limits) *Controller {
	initial = Clamp(initial, frame, limits)
	return &Controller{
		frame:    frame,
		limits:   limits,
		defaults: initial,
		settings: initial,
	}
}

// Settings returns the committed placement
func (c *Controller) Settings() Settings {
	return c.settings
}

// State returns the current controller state
func (c *Controller) State() State {
	return c.state
}

// Cursor returns the current pointer affordance
func (c *Controller) Cursor() Cursor {
	return c.cursor
}

// Limits returns the size and zoom limits
func (c *Controller) Limits() Limits {
	return c.limits
}

// Handle applies a pointer event. scale is the display scale of the render
// target the event position is expressed in.
func (c *Controller) Handle(ev PointerEvent, scale geometry.Scale) Update {
	if ev.Touches > 1 || !scale.Valid() {
		return c.update(false)
	}

	native := scale.ToNative(ev.Pos)

	switch c.state {
	case Idle:
		switch ev.Kind {
		case PointerDown:
			if !ev.primary() || !c.settings.Contains(native) {
				return c.update(false)
			}
			c.state = Dragging
			c.cursor = CursorGrabbing
			c.dragStartPointer = ev.Pos
			c.dragStartPlacement = c.settings
		case PointerMove:
			if c.settings.Contains(native) {
				c.cursor = CursorGrab
			} else {
				c.cursor = CursorDefault
			}
		case PointerLeave, PointerCancel:
			c.cursor = CursorDefault
		}
		return c.update(false)

	case Dragging:
		switch ev.Kind {
		case PointerMove:
			delta := ev.Pos.Sub(c.dragStartPointer).Div(float64(scale))
			next := Settings{
				X:    c.dragStartPlacement.X + delta.X,
				Y:    c.dragStartPlacement.Y + delta.Y,
				Size: c.settings.Size,
			}
			return c.commit(Clamp(next, c.frame, c.limits))
		case PointerUp, PointerCancel, PointerLeave:
			c.state = Idle
			c.cursor = CursorDefault
		}
	}
	return c.update(false)
}

// SetZoom sets the placement size in native pixels, clamped to the limits.
// The position is left alone unless the new size pushes it out of bounds.
func (c *Controller) SetZoom(size float64) Update {
	next := c.settings
	next.Size = c.limits.ClampSize(size)
	if !inBounds(next, c.frame) {
		next = clampPosition(next, c.frame)
	}
	return c.commit(next)
}

// SetZoomPercent sets the size as a percentage of the default size
func (c *Controller) SetZoomPercent(percent float64) Update {
	percent = geometry.Clamp(percent, c.limits.MinPercent, c.limits.MaxPercent)
	return c.SetZoom(c.limits.DefaultSize * percent / 100)
}

// ZoomPercent reports the current size relative to the default size
func (c *Controller) ZoomPercent() float64 {
	if c.limits.DefaultSize <= 0 {
		return 0
	}
	return c.settings.Size / c.limits.DefaultSize * 100
}

// Nudge moves the placement by a native-pixel offset
func (c *Controller) Nudge(dx, dy float64) Update {
	next := c.settings
	next.X += dx
	next.Y += dy
	return c.commit(Clamp(next, c.frame, c.limits))
}

// Replace swaps in a whole new placement record
func (c *Controller) Replace(s Settings) Update {
	return c.commit(Clamp(s, c.frame, c.limits))
}

// Reset restores the initial placement and ends any drag
func (c *Controller) Reset() Update {
	c.state = Idle
	c.cursor = CursorDefault
	return c.commit(c.defaults)
}

func (c *Controller) commit(next Settings) Update {
	changed := next != c.settings
	c.settings = next
	return c.update(changed)
}

func (c *Controller) update(changed bool) Update {
	return Update{
		Settings: c.settings,
		Changed:  changed,
		State:    c.state,
		Cursor:   c.cursor,
	}
}
