// Package tui is the interactive placement editor. The composite is drawn
// with half-block characters, and the mouse drags the photo inside the frame
// the same way a pointer drags it on a canvas.
package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/menta2k/frame-compositor/pkg/compositor"
	"github.com/menta2k/frame-compositor/pkg/frame"
	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/placement"
)

// statusRows is the number of terminal rows below the preview
const statusRows = 2

// Options configures the editor
type Options struct {
	// ZoomStep is the keyboard and wheel zoom increment in percent
	ZoomStep float64
	// Nudge is the arrow-key move distance in frame pixels
	Nudge float64
	// Background shows through transparent pixels
	Background color.NRGBA
	OutputDir  string
	Caption    string
	Logger     *slog.Logger
}

// DefaultOptions returns the editor defaults
func DefaultOptions() Options {
	return Options{
		ZoomStep:   5,
		Nudge:      10,
		Background: color.NRGBA{0x1e, 0x1e, 0x2e, 0xff},
		OutputDir:  ".",
	}
}

type frameLoadedMsg struct {
	asset *frame.Asset
	err   error
}

type exportDoneMsg struct {
	path string
	size int
	err  error
}

// Model is the Bubble Tea model of the editor
type Model struct {
	engine  *compositor.Engine
	loader  *frame.Loader
	user    image.Image
	initial placement.Settings
	limits  placement.Limits
	opts    Options
	logger  *slog.Logger

	frame    *frame.Asset
	frameErr error
	ctrl     *placement.Controller
	canvas   *compositor.Canvas

	width, height int
	target        geometry.Size
	lines         []string

	status    string
	statusErr bool
	exporting bool
}

// New creates the editor. user may be nil, in which case only the frame is
// shown and export reports the missing photo.
func New(engine *compositor.Engine, loader *frame.Loader, user image.Image, initial placement.Settings, limits placement.Limits, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultOptions().ZoomStep
	}
	if opts.Nudge <= 0 {
		opts.Nudge = DefaultOptions().Nudge
	}
	return Model{
		engine:  engine,
		loader:  loader,
		user:    user,
		initial: initial,
		limits:  limits,
		opts:    opts,
		logger:  logger,
		canvas:  compositor.NewCanvas(),
	}
}

// Init waits for the frame in the background
func (m Model) Init() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		asset, err := loader.Wait(context.Background())
		return frameLoadedMsg{asset: asset, err: err}
	}
}

// Update handles window, mouse, key and completion messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameLoadedMsg:
		if msg.err != nil {
			m.frameErr = msg.err
			m.logger.Error("frame unavailable", "err", msg.err)
			return m, nil
		}
		m.frame = msg.asset
		m.ctrl = placement.NewController(m.frame.Size(), m.initial, m.limits)
		m.layout()
		m.redraw()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.redraw()

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.setError(exportError(msg.err))
			m.logger.Error("export failed", "err", msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("saved %s (%d bytes)", msg.path, msg.size))
	}
	return m, nil
}

// View renders the preview and the status bar
func (m Model) View() string {
	var body string
	switch {
	case m.frameErr != nil:
		body = errStyle.Render("Frame could not be loaded: " + m.frameErr.Error())
	case m.frame == nil:
		body = hintStyle.Render("Loading frame…")
	default:
		body = strings.Join(m.lines, "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), hintStyle.Render(helpText))
}

// Settings returns the current placement, or the initial one while the frame loads
func (m Model) Settings() placement.Settings {
	if m.ctrl == nil {
		return m.initial
	}
	return m.ctrl.Settings()
}

// Target is the preview size in pixels
func (m Model) Target() geometry.Size {
	return m.target
}

// Status returns the last status message
func (m Model) Status() string {
	return m.status
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil || m.target.Empty() {
		return m, nil
	}

	// Each cell is one pixel wide and two tall; use the cell's center
	pos := geometry.Pt(float64(msg.X)+0.5, float64(msg.Y)*2+1)
	inside := msg.X >= 0 && msg.Y >= 0 && msg.X < m.target.Width && msg.Y*2 < m.target.Height

	var ev placement.PointerEvent
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.zoomBy(m.opts.ZoomStep), nil
		case tea.MouseButtonWheelDown:
			return m.zoomBy(-m.opts.ZoomStep), nil
		}
		if !inside {
			return m, nil
		}
		ev = placement.PointerEvent{Kind: placement.PointerDown, Pos: pos, Primary: msg.Button == tea.MouseButtonLeft}
	case tea.MouseActionRelease:
		ev = placement.PointerEvent{Kind: placement.PointerUp, Pos: pos}
	case tea.MouseActionMotion:
		ev = placement.PointerEvent{Kind: placement.PointerMove, Pos: pos}
		if !inside {
			ev.Kind = placement.PointerLeave
		}
	default:
		return m, nil
	}

	if u := m.ctrl.Handle(ev, m.scale()); u.Changed {
		m.redraw()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if m.ctrl == nil {
		return m, nil
	}

	n := m.opts.Nudge
	var u placement.Update
	switch msg.String() {
	case "+", "=":
		return m.zoomBy(m.opts.ZoomStep), nil
	case "-", "_":
		return m.zoomBy(-m.opts.ZoomStep), nil
	case "up", "k":
		u = m.ctrl.Nudge(0, -n)
	case "down", "j":
		u = m.ctrl.Nudge(0, n)
	case "left", "h":
		u = m.ctrl.Nudge(-n, 0)
	case "right", "l":
		u = m.ctrl.Nudge(n, 0)
	case "r":
		u = m.ctrl.Reset()
	case "esc":
		u = m.ctrl.Handle(placement.PointerEvent{Kind: placement.PointerCancel}, m.scale())
	case "e", "ctrl+s":
		return m.export()
	default:
		return m, nil
	}
	if u.Changed {
		m.redraw()
	}
	return m, nil
}

func (m Model) zoomBy(delta float64) Model {
	if m.ctrl == nil {
		return m
	}
	// Whole percent steps, like a slider
	if u := m.ctrl.SetZoomPercent(math.Round(m.ctrl.ZoomPercent()) + delta); u.Changed {
		m.redraw()
	}
	return m
}

func (m Model) export() (tea.Model, tea.Cmd) {
	if m.exporting {
		return m, nil
	}
	m.exporting = true
	m.setStatus("Exporting…")

	engine, scene, dir := m.engine, m.scene(), m.opts.OutputDir
	return m, func() tea.Msg {
		blob, err := engine.Export(context.Background(), scene)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := blob.Save(dir)
		return exportDoneMsg{path: path, size: len(blob.Data), err: err}
	}
}

func (m *Model) layout() {
	if m.frame == nil || m.width <= 0 || m.height <= statusRows {
		m.target = geometry.Size{}
		return
	}
	vp := geometry.Viewport{Width: m.width, Height: (m.height - statusRows) * 2}
	m.target = geometry.FitInside(vp, m.frame.Size())
}

func (m *Model) redraw() {
	if m.frame == nil || m.target.Empty() {
		m.lines = nil
		return
	}
	if err := m.engine.RenderPreview(m.canvas, m.scene(), m.target); err != nil {
		m.setError(err.Error())
		return
	}
	m.lines = RenderHalfBlock(m.canvas.Image(), m.opts.Background)
}

func (m Model) scene() compositor.Scene {
	return compositor.Scene{
		Frame:        m.frame,
		UserImage:    m.user,
		HasUserImage: m.user != nil,
		Placement:    m.Settings(),
		Caption:      m.opts.Caption,
	}
}

func (m Model) scale() geometry.Scale {
	if m.frame == nil {
		return 0
	}
	return geometry.ScaleFor(m.target.Width, m.frame.Width())
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}

func (m Model) statusLine() string {
	var parts []string
	if m.ctrl != nil {
		s := m.ctrl.Settings()
		parts = append(parts,
			statusStyle.Render("pos ")+valueStyle.Render(fmt.Sprintf("%.0f,%.0f", s.X, s.Y)),
			statusStyle.Render("size ")+valueStyle.Render(fmt.Sprintf("%.0f", s.Size)),
			statusStyle.Render("zoom ")+valueStyle.Render(fmt.Sprintf("%.0f%%", m.ctrl.ZoomPercent())),
			statusStyle.Render(m.ctrl.Cursor().String()),
		)
	}
	if m.status != "" {
		style := okStyle
		if m.statusErr {
			style = errStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	line := strings.Join(parts, hintStyle.Render(" │ "))
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}

func exportError(err error) string {
	switch {
	case errors.Is(err, compositor.ErrMissingInput):
		return "Please upload an image before exporting"
	case errors.Is(err, compositor.ErrRender):
		return "Frame not ready: " + err.Error()
	case errors.Is(err, compositor.ErrEncode):
		return "Could not encode PNG: " + err.Error()
	}
	return "Export failed: " + err.Error()
}
