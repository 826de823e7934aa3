package placement

import (
	"math"
	"testing"

	"github.com/menta2k/frame-compositor/pkg/geometry"
)

func newAvatarController() *Controller {
	return NewController(avatarFrame, Settings{X: 275, Y: 205, Size: 1444}, DefaultLimits())
}

func down(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerDown, Pos: geometry.Pt(x, y), Primary: true}
}

func move(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerMove, Pos: geometry.Pt(x, y)}
}

func TestDragBoundsScenario(t *testing.T) {
	for _, scale := range []geometry.Scale{1, 0.5, 0.2} {
		c := newAvatarController()
		center := scale.ToDisplay(c.Settings().Center())

		u := c.Handle(down(center.X, center.Y), scale)
		if u.State != Dragging {
			t.Fatalf("scale %v: expected Dragging after pointer down on center", scale)
		}

		// +10000 frame units, expressed in display pixels
		d := scale.Length(10000)
		u = c.Handle(move(center.X+d, center.Y+d), scale)
		if !u.Changed {
			t.Errorf("scale %v: expected placement change", scale)
		}
		if math.Abs(u.Settings.X-878) > 1e-9 || math.Abs(u.Settings.Y-878) > 1e-9 {
			t.Errorf("scale %v: expected clamp to (878, 878), got %v", scale, u.Settings)
		}
		if u.Settings.Size != 1444 {
			t.Errorf("scale %v: drag changed size to %f", scale, u.Settings.Size)
		}
	}
}

func TestIdleDragScenario(t *testing.T) {
	c := newAvatarController()
	before := c.Settings()

	// Corner of the bounding square is outside the circle
	u := c.Handle(down(280, 210), 1)
	if u.State != Idle {
		t.Fatalf("pointer down outside hit region entered %v", u.State)
	}

	u = c.Handle(move(800, 800), 1)
	if u.Changed || c.Settings() != before {
		t.Errorf("placement changed while idle: %v -> %v", before, c.Settings())
	}
}

func TestDragUsesStartSnapshot(t *testing.T) {
	c := newAvatarController()
	c.Handle(down(997, 927), 1)
	c.Handle(move(1007, 937), 1)
	u := c.Handle(move(1017, 947), 1)

	want := Settings{X: 295, Y: 225, Size: 1444}
	if u.Settings != want {
		t.Errorf("Expected %v, got %v", want, u.Settings)
	}
}

func TestDragEnds(t *testing.T) {
	ends := []EventKind{PointerUp, PointerCancel, PointerLeave}
	for _, kind := range ends {
		c := newAvatarController()
		c.Handle(down(997, 927), 1)
		c.Handle(move(1000, 930), 1)
		before := c.Settings()

		u := c.Handle(PointerEvent{Kind: kind, Pos: geometry.Pt(1500, 1500)}, 1)
		if u.State != Idle {
			t.Errorf("kind %d: expected Idle, got %v", kind, u.State)
		}
		if u.Changed || c.Settings() != before {
			t.Errorf("kind %d: end of drag changed placement", kind)
		}
		if u.Cursor != CursorDefault {
			t.Errorf("kind %d: expected default cursor, got %v", kind, u.Cursor)
		}
	}
}

func TestHoverCursor(t *testing.T) {
	c := newAvatarController()

	u := c.Handle(move(997, 927), 1)
	if u.Cursor != CursorGrab || u.State != Idle {
		t.Errorf("hover over image: cursor %v state %v", u.Cursor, u.State)
	}

	u = c.Handle(move(0, 0), 1)
	if u.Cursor != CursorDefault {
		t.Errorf("hover off image: cursor %v", u.Cursor)
	}

	u = c.Handle(down(997, 927), 1)
	if u.Cursor != CursorGrabbing {
		t.Errorf("dragging: cursor %v", u.Cursor)
	}
}

func TestMultiTouchIgnored(t *testing.T) {
	c := newAvatarController()
	u := c.Handle(PointerEvent{Kind: PointerDown, Pos: geometry.Pt(997, 927), Touches: 2}, 1)
	if u.State != Idle {
		t.Fatalf("two-finger touch started a drag")
	}

	c.Handle(PointerEvent{Kind: PointerDown, Pos: geometry.Pt(997, 927), Touches: 1}, 1)
	if c.State() != Dragging {
		t.Fatalf("single touch did not start a drag")
	}
	before := c.Settings()
	c.Handle(PointerEvent{Kind: PointerMove, Pos: geometry.Pt(1200, 1200), Touches: 2}, 1)
	if c.Settings() != before {
		t.Errorf("two-finger move changed placement")
	}
	c.Handle(PointerEvent{Kind: PointerUp, Touches: 2}, 1)
	if c.State() != Dragging {
		t.Errorf("two-finger release ended drag")
	}
}

func TestSecondaryButtonIgnored(t *testing.T) {
	c := newAvatarController()
	u := c.Handle(PointerEvent{Kind: PointerDown, Pos: geometry.Pt(997, 927)}, 1)
	if u.State != Idle {
		t.Errorf("non-primary button started a drag")
	}
}

func TestInvalidScaleIgnored(t *testing.T) {
	c := newAvatarController()
	if u := c.Handle(down(997, 927), 0); u.State != Idle {
		t.Errorf("zero scale started a drag")
	}
}

func TestSetZoom(t *testing.T) {
	c := newAvatarController()

	u := c.SetZoom(1000)
	if u.Settings.Size != 1000 || u.Settings.X != 275 || u.Settings.Y != 205 {
		t.Errorf("SetZoom(1000) = %v", u.Settings)
	}
	if !u.Changed {
		t.Error("expected Changed")
	}

	if u := c.SetZoom(50); u.Settings.Size != 800 {
		t.Errorf("Expected size clamped to 800, got %f", u.Settings.Size)
	}
	if u := c.SetZoom(1e6); u.Settings.Size != 2200 {
		t.Errorf("Expected size clamped to 2200, got %f", u.Settings.Size)
	}
}

func TestSetZoomKeepsInvariant(t *testing.T) {
	c := NewController(avatarFrame, Settings{X: 878, Y: 878, Size: 1444}, DefaultLimits())
	u := c.SetZoom(2200)
	if u.Settings.X != 500 || u.Settings.Y != 500 {
		t.Errorf("Expected position re-clamped to 500, got %v", u.Settings)
	}
}

func TestZoomPercent(t *testing.T) {
	c := newAvatarController()
	if p := c.ZoomPercent(); p != 100 {
		t.Errorf("Expected 100%%, got %f", p)
	}

	u := c.SetZoomPercent(50)
	if u.Settings.Size != 800 {
		// 722 is below MinSize so the pixel limits win
		t.Errorf("Expected 800, got %f", u.Settings.Size)
	}

	u = c.SetZoomPercent(125)
	if u.Settings.Size != 1805 {
		t.Errorf("Expected 1805, got %f", u.Settings.Size)
	}

	u = c.SetZoomPercent(400)
	if u.Settings.Size != 1805 {
		t.Errorf("Expected percent clamped to 125%%, got size %f", u.Settings.Size)
	}
}

func TestZoomDuringDrag(t *testing.T) {
	c := newAvatarController()
	c.Handle(down(997, 927), 1)
	c.SetZoom(1000)
	if c.State() != Dragging {
		t.Fatal("zoom ended the drag")
	}
	u := c.Handle(move(1007, 927), 1)
	if u.Settings.Size != 1000 || u.Settings.X != 285 {
		t.Errorf("Expected {285 205 1000}, got %v", u.Settings)
	}
}

func TestNudgeAndReset(t *testing.T) {
	c := newAvatarController()
	c.Nudge(10, -10)
	if s := c.Settings(); s.X != 285 || s.Y != 195 {
		t.Errorf("Nudge gave %v", s)
	}
	c.Nudge(1e5, 0)
	if s := c.Settings(); s.X != 878 {
		t.Errorf("Nudge not clamped: %v", s)
	}
	u := c.Reset()
	if u.Settings != (Settings{X: 275, Y: 205, Size: 1444}) {
		t.Errorf("Reset gave %v", u.Settings)
	}
}

func TestReplace(t *testing.T) {
	c := newAvatarController()
	u := c.Replace(Settings{X: -9999, Y: 0, Size: 1000})
	if u.Settings.X != -500 {
		t.Errorf("Replace not clamped: %v", u.Settings)
	}
}
