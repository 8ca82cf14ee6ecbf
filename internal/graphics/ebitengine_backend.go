//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gones/internal/input"
	"gones/internal/nes"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the NES emulator. It drives
// internal/nes.Core directly: Update steps the core and reads controller
// state straight off the keyboard, Draw presents Core.TakeFrame via
// ebiten.Image.WritePixels. The Window/InputEvent plumbing is only used for
// the handful of host-level keys (quit, save/load) that Application still
// owns.
type EbitengineGame struct {
	window *EbitengineWindow
	core   *nes.Core

	frameImage   *ebiten.Image
	nesWidth     int
	nesHeight    int
	windowWidth  int
	windowHeight int

	scale     int
	drawCount int

	// Reusable RGBA8 buffer for WritePixels; avoids a per-frame allocation.
	pixels []byte
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	// Calculate appropriate scale for NES resolution (256x240)
	scale := 1
	if width >= 512 && height >= 480 {
		scale = 2
	}
	if width >= 1024 && height >= 960 {
		scale = 4
	}

	game := &EbitengineGame{
		nesWidth:     256,
		nesHeight:    240,
		windowWidth:  width,
		windowHeight: height,
		scale:        scale,
		frameImage:   ebiten.NewImage(256, 240),
		pixels:       make([]byte, 256*240*4),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	// Configure Ebitengine
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	// Configure VSync for optimal 60FPS performance
	if b.config.VSync {
		ebiten.SetVsyncEnabled(true)
	} else {
		// Even without VSync, we want to target 60FPS
		ebiten.SetVsyncEnabled(false)
	}

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	// Set the filter mode (disable for better performance if not needed)
	if b.config.Filter == "linear" {
		ebiten.SetScreenFilterEnabled(true)
	} else {
		ebiten.SetScreenFilterEnabled(false) // Better performance
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled automatically by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {
	// Ebitengine handles buffer swapping automatically
}

// PollEvents processes input events and returns them. Only host-level
// events (quit, function keys) are queued here; controller state is read
// directly from the keyboard in EbitengineGame.Update.
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame satisfies the Window interface for callers that still drive
// rendering through Application.render (non-Ebitengine paths use this);
// EbitengineGame.Draw presents frames itself once a core is attached via
// SetCore, so this is only reached before the game loop starts.
func (w *EbitengineWindow) RenderFrame(frame *[256 * 240]color.RGBA) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	w.game.writeFrame(frame)
	return nil
}

// SetCore attaches the emulation core the game loop drives every Update.
func (w *EbitengineWindow) SetCore(core *nes.Core) {
	if w.game != nil {
		w.game.core = core
	}
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	// Start the Ebitengine game loop
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets a hook run once per tick after the core has
// stepped a frame; Application uses it for host bookkeeping (quit, FPS).
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update. It drives the NES core directly:
// read the keyboard into controller state, run the core for one video
// frame, then let the host hook handle quit/save keys and bookkeeping.
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()

	if g.core != nil {
		for {
			result := g.core.Step()
			if err := g.core.Err(); err != nil {
				log.Printf("[Ebitengine] core halted: %v", err)
				break
			}
			if result == nes.RunUntilFrame {
				break
			}
		}
	}

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	if g.core == nil {
		screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})
		return
	}

	g.writeFrame(g.core.TakeFrame())
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	op := &ebiten.DrawImageOptions{}

	scaleX := float64(g.windowWidth) / float64(g.nesWidth)
	scaleY := float64(g.windowHeight) / float64(g.nesHeight)

	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX := (float64(g.windowWidth) - float64(g.nesWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(g.nesHeight)*scale) / 2

	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)

	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.drawCount%1800 == 0 { // about once per 30 seconds at 60fps
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx at offset (%.1f,%.1f)",
			g.drawCount, g.nesWidth, g.nesHeight, scale, offsetX, offsetY)
	}
}

// writeFrame presents frame via ebiten.Image.WritePixels, the modern
// replacement for the deprecated ReplacePixels the teacher used.
func (g *EbitengineGame) writeFrame(frame *[256 * 240]color.RGBA) {
	for i, px := range frame {
		o := i * 4
		g.pixels[o] = px.R
		g.pixels[o+1] = px.G
		g.pixels[o+2] = px.B
		g.pixels[o+3] = 0xFF
	}
	g.frameImage.WritePixels(g.pixels)
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// keyMappings maps ebiten keys to graphics.Key values for the host-level
// events (quit, function keys) that still flow through PollEvents.
var hostKeyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape: KeyEscape,
	ebiten.KeyF1:     KeyF1,
	ebiten.KeyF2:     KeyF2,
	ebiten.KeyF3:     KeyF3,
	ebiten.KeyF4:     KeyF4,
	ebiten.KeyF5:     KeyF5,
	ebiten.KeyF6:     KeyF6,
	ebiten.KeyF7:     KeyF7,
	ebiten.KeyF8:     KeyF8,
	ebiten.KeyF9:     KeyF9,
	ebiten.KeyF10:    KeyF10,
	ebiten.KeyF11:    KeyF11,
	ebiten.KeyF12:    KeyF12,
}

// player1Keys and player2Keys mirror the teacher's key layout: WASD/arrows
// + J/K/Enter/Space for player 1, the number row for player 2.
var player1Keys = map[ebiten.Key]input.Button{
	ebiten.KeyArrowUp:    input.Up,
	ebiten.KeyArrowDown:  input.Down,
	ebiten.KeyArrowLeft:  input.Left,
	ebiten.KeyArrowRight: input.Right,
	ebiten.KeyW:          input.Up,
	ebiten.KeyS:          input.Down,
	ebiten.KeyA:          input.Left,
	ebiten.KeyD:          input.Right,
	ebiten.KeyJ:          input.A,
	ebiten.KeyK:          input.B,
	ebiten.KeyEnter:      input.Start,
	ebiten.KeySpace:      input.Select,
}

var player2Keys = map[ebiten.Key]input.Button{
	ebiten.Key1: input.Up,
	ebiten.Key2: input.Down,
	ebiten.Key3: input.Left,
	ebiten.Key4: input.Right,
	ebiten.Key5: input.A,
	ebiten.Key6: input.B,
	ebiten.Key7: input.Start,
	ebiten.Key8: input.Select,
}

// processInput reads ebiten.IsKeyPressed each tick to drive
// Core.SetController, and separately queues the handful of host-level key
// events (quit, F1-F12) Application still interprets.
func (g *EbitengineGame) processInput() {
	if g.window == nil {
		return
	}

	if g.core != nil {
		var p1, p2 input.Button
		for key, button := range player1Keys {
			if ebiten.IsKeyPressed(key) {
				p1 |= button
			}
		}
		for key, button := range player2Keys {
			if ebiten.IsKeyPressed(key) {
				p2 |= button
			}
		}
		g.core.SetController(0, p1)
		g.core.SetController(2, p2)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, key := range hostKeyMappings {
		if ebitenKey == ebiten.KeyEscape {
			continue
		}
		if inpututil.IsKeyJustPressed(ebitenKey) {
			modifiers := ModifierNone
			if ebiten.IsKeyPressed(ebiten.KeyShift) {
				modifiers = ModifierShift
			}
			g.window.events = append(g.window.events, InputEvent{
				Type:      InputEventTypeKey,
				Key:       key,
				Pressed:   true,
				Modifiers: modifiers,
			})
		}
	}
}
