// Package app implements the main NES emulator application with GUI support.
package app

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gones/internal/graphics"
	"gones/internal/nes"
)

// Application represents the main NES emulator application. It drives a
// single internal/nes.Core - the same facade -nogui headless mode uses -
// so the GUI and headless entry points share one emulation path instead of
// stepping a *bus.Bus directly behind the GUI's back.
type Application struct {
	core *nes.Core

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	// Application state
	config  *Config
	saveRAM *SaveRAMManager

	// Control flags
	running     bool
	paused      bool
	showMenu    bool
	initialized bool
	headless    bool

	// Performance tracking
	frameCount  uint64
	startTime   time.Time
	lastFPSTime time.Time
	currentFPS  float64

	// Enhanced FPS monitoring
	lastFrameTime       time.Time
	frameCountAtLastFPS uint64
	averageFPS          float64
	maxFrameTime        time.Duration
	minFrameTime        time.Duration
	lastFPSLog          time.Time

	// Frame consistency monitoring
	recentFrameTimes [10]time.Duration // Rolling buffer of last 10 frame times
	frameTimeIndex   int               // Current index in the rolling buffer
	frameTimeSum     time.Duration     // Sum of times in rolling buffer
	frameVariance    float64           // Frame time variance for consistency

	// Memory monitoring and periodic cleanup
	lastMemoryCheck    time.Time
	lastCleanup        time.Time
	initialMemoryUsage uint64
	lastMemoryUsage    uint64
	memoryGrowthRate   float64

	// ROM management
	romPath string

	// ESC key confirmation tracking
	lastESCTime time.Time

	// Debug logging frequency control
	debugFrameCounter uint64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

// NewApplication creates a new NES emulator application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new NES emulator application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	app := &Application{
		config:      NewConfig(),
		running:     false,
		paused:      false,
		showMenu:    false,
		initialized: false,
		headless:    headless,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	// Load configuration
	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			// Log warning but continue with defaults
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}

	// Initialize components
	if err := app.initializeComponents(headless); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	return app, nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents(headless bool) error {
	if err := app.initializeGraphicsBackend(headless); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %v", err)
	}

	app.saveRAM = NewSaveRAMManager(app.config.Paths.SaveData)

	app.initialized = true
	return nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend(headless bool) error {
	// Determine backend type
	var backendType graphics.BackendType
	if headless {
		backendType = graphics.BackendHeadless
	} else {
		switch app.config.Video.Backend {
		case "ebitengine":
			backendType = graphics.BackendEbitengine
		case "headless":
			backendType = graphics.BackendHeadless
		case "terminal":
			backendType = graphics.BackendTerminal
		default:
			// Default to Ebitengine for best compatibility
			backendType = graphics.BackendEbitengine
		}
	}

	// Create graphics backend
	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %v", err)
	}

	// Initialize backend
	graphicsConfig := graphics.Config{
		WindowTitle:  "gones - Go NES Emulator",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		AspectRatio:  app.config.Video.AspectRatio,
		Headless:     headless,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// If Ebitengine fails (e.g., no DISPLAY), fallback to headless mode
		if backendType == graphics.BackendEbitengine {
			fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
			app.graphicsBackend, err = graphics.CreateBackend(graphics.BackendHeadless)
			if err != nil {
				return fmt.Errorf("failed to create fallback headless backend: %v", err)
			}
			graphicsConfig.Headless = true
			if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
				return fmt.Errorf("failed to initialize fallback headless backend: %v", err)
			}
		} else {
			return fmt.Errorf("failed to initialize graphics backend: %v", err)
		}
	}

	// Create window (only if not headless)
	if !headless && !app.graphicsBackend.IsHeadless() {
		app.window, err = app.graphicsBackend.CreateWindow(
			graphicsConfig.WindowTitle,
			graphicsConfig.WindowWidth,
			graphicsConfig.WindowHeight,
		)
		if err != nil {
			return fmt.Errorf("failed to create window: %v", err)
		}
	}

	// Initialize video processor
	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)

	return nil
}

// LoadROM loads a ROM file into the emulator via internal/nes.Core, the
// same construction path -nogui headless mode uses.
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "read ROM", Err: err}
	}

	core, err := nes.NewWithSeed(rom, app.config.Audio.SampleRate, app.config.Emulation.Seed)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}

	app.core = core
	app.romPath = romPath

	if err := app.saveRAM.Load(app.core, romPath); err != nil {
		fmt.Printf("[APP_WARNING] Could not load save RAM for %s: %v\n", romPath, err)
	}

	// Update window title (if window exists)
	if app.window != nil {
		romName := filepath.Base(romPath)
		app.window.SetTitle(fmt.Sprintf("gones - %s", romName))
	}

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetCore(app.core)
	}

	return nil
}

// Run starts the main application loop
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	if app.config.Debug.EnableLogging {
		fmt.Printf("[APP_DEBUG] Starting emulator with %s backend...\n", app.graphicsBackend.GetName())
	}

	// Ebitengine drives the core itself inside EbitengineGame.Update/Draw;
	// this hook only does host bookkeeping (quit/save-RAM keys, FPS).
	if app.graphicsBackend.GetName() == "Ebitengine" && app.window != nil {
		if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
			ebitengineWindow.SetEmulatorUpdateFunc(func() error {
				frameStartTime := time.Now()

				if err := app.processHostEvents(); err != nil {
					if app.config.Debug.EnableLogging {
						fmt.Printf("[APP_ERROR] Input processing error: %v\n", err)
					}
				}

				app.updatePerformanceMetricsMinimal(frameStartTime)

				if app.window != nil && app.window.ShouldClose() {
					app.Stop()
				}

				return nil
			})
			return ebitengineWindow.Run()
		}
	}

	// Standard main application loop for non-Ebitengine backends: the
	// host steps the core and renders itself every tick.
	for app.running {
		frameStartTime := time.Now()

		if err := app.processHostEvents(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_ERROR] Input processing error: %v\n", err)
			}
		}

		if err := app.updateEmulator(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_DEBUG] Emulator update error: %v\n", err)
			}
		}

		if err := app.render(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_ERROR] Render error: %v\n", err)
			}
		}

		app.updatePerformanceMetrics(frameStartTime)

		if app.window != nil && app.window.ShouldClose() {
			app.Stop()
		}

		time.Sleep(16 * time.Millisecond) // ~60 FPS
	}

	if app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Emulator main loop ended")
	}
	return nil
}

// updateEmulator runs the core for exactly one video frame
func (app *Application) updateEmulator() error {
	if app.paused || app.core == nil {
		return nil
	}
	for {
		result := app.core.Step()
		if err := app.core.Err(); err != nil {
			return err
		}
		if result == nes.RunUntilFrame {
			return nil
		}
	}
}

// processHostEvents handles the small set of host-level keys (quit,
// F-keys) PollEvents still surfaces. Controller input for Ebitengine
// bypasses this path entirely - see EbitengineGame.processInput, which
// writes straight into Core.SetController every tick.
func (app *Application) processHostEvents() error {
	if app.window == nil {
		return nil
	}

	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return nil
		case graphics.InputEventTypeKey:
			app.handleSpecialInput(event)
		}
	}

	return nil
}

// handleSpecialInput handles special input combinations: ESC double-tap
// to quit, F5/F9 to save/load battery RAM.
func (app *Application) handleSpecialInput(event graphics.InputEvent) bool {
	if !event.Pressed {
		return false
	}

	if event.Key == graphics.KeyEscape {
		now := time.Now()
		if !app.lastESCTime.IsZero() && now.Sub(app.lastESCTime) < 3*time.Second {
			fmt.Println("ESC double-tap confirmed - shutting down emulator...")
			app.Stop()
			return true
		}
		fmt.Println("ESC pressed - press ESC again within 3 seconds to quit, or continue playing...")
		app.lastESCTime = now
		return true
	}
	app.lastESCTime = time.Time{}

	switch event.Key {
	case graphics.KeyF5:
		if err := app.SaveRAM(); err != nil {
			fmt.Printf("Failed to save RAM: %v\n", err)
		} else {
			fmt.Println("Battery RAM saved")
		}
		return true
	case graphics.KeyF9:
		if err := app.LoadRAM(); err != nil {
			fmt.Printf("Failed to load RAM: %v\n", err)
		} else {
			fmt.Println("Battery RAM loaded")
		}
		return true
	}

	return false
}

// GetCore returns the emulation core for direct access (testing, advanced control)
func (app *Application) GetCore() *nes.Core {
	return app.core
}

// render renders the current frame
func (app *Application) render() error {
	if app.window == nil || app.core == nil {
		return nil
	}

	frame := app.core.TakeFrame()
	if app.videoProcessor != nil {
		processed := app.videoProcessor.ProcessFrame(frame[:])
		var out [256 * 240]color.RGBA
		copy(out[:], processed)
		frame = &out
	}

	if err := app.window.RenderFrame(frame); err != nil {
		return fmt.Errorf("failed to render NES frame: %v", err)
	}

	app.window.SwapBuffers()
	return nil
}

// updatePerformanceMetrics updates performance tracking with high-precision timing
func (app *Application) updatePerformanceMetrics(frameStartTime time.Time) {
	now := time.Now()
	app.frameCount++

	frameTime := now.Sub(frameStartTime)

	if app.lastFrameTime.IsZero() {
		app.lastFrameTime = frameStartTime
		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount
		app.minFrameTime = frameTime
		app.maxFrameTime = frameTime
		app.lastFPSLog = now
		app.lastMemoryCheck = now
		app.lastCleanup = now

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		app.initialMemoryUsage = memStats.Alloc
		app.lastMemoryUsage = memStats.Alloc
		return
	}

	if frameTime < app.minFrameTime {
		app.minFrameTime = frameTime
	}
	if frameTime > app.maxFrameTime {
		app.maxFrameTime = frameTime
	}

	oldFrameTime := app.recentFrameTimes[app.frameTimeIndex]
	app.frameTimeSum -= oldFrameTime
	app.recentFrameTimes[app.frameTimeIndex] = frameTime
	app.frameTimeSum += frameTime
	app.frameTimeIndex = (app.frameTimeIndex + 1) % 10

	if app.frameCount >= 10 {
		avgFrameTime := app.frameTimeSum / 10
		if app.frameCount == 10 {
			variance := 0.0
			for _, ft := range app.recentFrameTimes {
				diff := float64(ft - avgFrameTime)
				variance += diff * diff
			}
			app.frameVariance = variance / 10.0
		} else {
			newDiff := float64(frameTime - avgFrameTime)
			oldDiff := float64(oldFrameTime - avgFrameTime)
			alpha := 0.1
			app.frameVariance = app.frameVariance*(1-alpha) + (newDiff*newDiff-oldDiff*oldDiff)*alpha
			if app.frameVariance < 0 {
				app.frameVariance = 0
			}
		}
	}

	if now.Sub(app.lastFPSTime) >= time.Second {
		elapsed := now.Sub(app.lastFPSTime).Seconds()
		framesInPeriod := app.frameCount - app.frameCountAtLastFPS
		app.currentFPS = float64(framesInPeriod) / elapsed

		totalElapsed := now.Sub(app.startTime).Seconds()
		if totalElapsed > 0 {
			app.averageFPS = float64(app.frameCount) / totalElapsed
		}

		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount

		if app.config.Debug.EnableLogging && now.Sub(app.lastFPSLog) >= 5*time.Second {
			app.logFPSMetrics(now, frameTime)
			app.lastFPSLog = now
		}
	}

	if now.Sub(app.lastMemoryCheck) >= 30*time.Second {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		currentMemory := memStats.Alloc
		memoryIncrease := float64(currentMemory) - float64(app.lastMemoryUsage)
		timeDiff := now.Sub(app.lastMemoryCheck).Seconds()
		app.memoryGrowthRate = memoryIncrease / timeDiff / (1024 * 1024)

		if app.config.Debug.EnableLogging {
			log.Printf("[MEMORY] Current: %.2f MB | Growth: %.3f MB/s | Since start: +%.2f MB",
				float64(currentMemory)/(1024*1024), app.memoryGrowthRate,
				float64(currentMemory-app.initialMemoryUsage)/(1024*1024))
		}

		app.lastMemoryUsage = currentMemory
		app.lastMemoryCheck = now

		if app.memoryGrowthRate > 0.1 {
			log.Printf("[MEMORY_WARNING] High memory growth rate: %.3f MB/s", app.memoryGrowthRate)
		}
	}

	if now.Sub(app.lastCleanup) >= 5*time.Minute {
		app.performPeriodicCleanup()
		app.lastCleanup = now
	}

	if frameTime > 20*time.Millisecond && app.config.Debug.EnableLogging {
		if app.frameCount%300 == 0 {
			log.Printf("[FPS_WARNING] Slow frame detected: %.2fms (target: 16.67ms)",
				float64(frameTime.Nanoseconds())/1000000.0)
		}
	}

	app.lastFrameTime = now
}

// updatePerformanceMetricsMinimal provides basic performance tracking with minimal overhead
func (app *Application) updatePerformanceMetricsMinimal(frameStartTime time.Time) {
	now := time.Now()
	app.frameCount++

	frameTime := now.Sub(frameStartTime)

	if app.lastFrameTime.IsZero() {
		app.lastFrameTime = frameStartTime
		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount
		app.minFrameTime = frameTime
		app.maxFrameTime = frameTime
		app.lastFPSLog = now
		return
	}

	if frameTime < app.minFrameTime {
		app.minFrameTime = frameTime
	}
	if frameTime > app.maxFrameTime {
		app.maxFrameTime = frameTime
	}

	if now.Sub(app.lastFPSTime) >= time.Second {
		elapsed := now.Sub(app.lastFPSTime).Seconds()
		framesInPeriod := app.frameCount - app.frameCountAtLastFPS
		app.currentFPS = float64(framesInPeriod) / elapsed

		totalElapsed := now.Sub(app.startTime).Seconds()
		if totalElapsed > 0 {
			app.averageFPS = float64(app.frameCount) / totalElapsed
		}

		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount

		if app.config.Debug.EnableLogging && now.Sub(app.lastFPSLog) >= 10*time.Second {
			log.Printf("[FPS] Current: %.1f FPS | Average: %.1f FPS | Frame: %d",
				app.currentFPS, app.averageFPS, app.frameCount)
			app.lastFPSLog = now
		}
	}

	app.lastFrameTime = now
}

// logFPSMetrics logs detailed FPS and performance information
func (app *Application) logFPSMetrics(now time.Time, lastFrameTime time.Duration) {
	log.Printf("[FPS] Current: %.1f FPS | Average: %.1f FPS | Frame: %d | Runtime: %.1fs",
		app.currentFPS, app.averageFPS, app.frameCount, now.Sub(app.startTime).Seconds())

	targetFrameTime := time.Duration(16670000) // 16.67ms for 60 FPS
	log.Printf("[TIMING] Frame: %.2fms | Min: %.2fms | Max: %.2fms | Target: %.2fms",
		float64(lastFrameTime.Nanoseconds())/1000000.0,
		float64(app.minFrameTime.Nanoseconds())/1000000.0,
		float64(app.maxFrameTime.Nanoseconds())/1000000.0,
		float64(targetFrameTime.Nanoseconds())/1000000.0)

	if app.frameCount >= 10 {
		avgRecentFrameTime := float64(app.frameTimeSum.Nanoseconds()) / 10.0 / 1000000.0
		var frameStdDev float64
		if app.frameVariance >= 0 {
			frameStdDev = math.Sqrt(app.frameVariance) / 1000000.0
		}
		log.Printf("[CONSISTENCY] Recent avg: %.2fms | Std dev: %.2fms", avgRecentFrameTime, frameStdDev)

		if frameStdDev < 2.0 {
			log.Printf("[PACING] Excellent frame pacing (+-%.2fms)", frameStdDev)
		} else if frameStdDev < 5.0 {
			log.Printf("[PACING] Moderate frame pacing (+-%.2fms)", frameStdDev)
		} else {
			log.Printf("[PACING] Poor frame pacing (+-%.2fms)", frameStdDev)
		}
	}

	if app.currentFPS >= 58.0 {
		log.Printf("[PERFORMANCE] Excellent performance (%.1f FPS)", app.currentFPS)
	} else if app.currentFPS >= 45.0 {
		log.Printf("[PERFORMANCE] Moderate performance (%.1f FPS)", app.currentFPS)
	} else {
		log.Printf("[PERFORMANCE] Poor performance (%.1f FPS)", app.currentFPS)
	}
}

// performPeriodicCleanup performs periodic resource cleanup to prevent progressive slowdown
func (app *Application) performPeriodicCleanup() {
	log.Printf("[CLEANUP] Starting periodic resource cleanup (frame %d)", app.frameCount)

	app.minFrameTime = time.Duration(16670000)
	app.maxFrameTime = time.Duration(16670000)

	for i := range app.recentFrameTimes {
		app.recentFrameTimes[i] = 0
	}
	app.frameTimeSum = 0
	app.frameTimeIndex = 0
	app.frameVariance = 0

	runtime.GC()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	log.Printf("[CLEANUP] Memory after GC: %.2f MB | Heap objects: %d",
		float64(memStats.Alloc)/(1024*1024), memStats.HeapObjects)
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	app.paused = !app.paused
}

// ShowMenu shows the menu
func (app *Application) ShowMenu() {
	app.showMenu = true
	app.paused = true
}

// HideMenu hides the menu
func (app *Application) HideMenu() {
	app.showMenu = false
	app.paused = false
}

// ToggleMenu toggles menu visibility
func (app *Application) ToggleMenu() {
	if app.showMenu {
		app.HideMenu()
	} else {
		app.ShowMenu()
	}
}

// SaveRAM persists the current cartridge's battery-backed PRG-RAM to disk.
func (app *Application) SaveRAM() error {
	if app.core == nil {
		return errors.New("no ROM loaded")
	}
	return app.saveRAM.Save(app.core, app.romPath)
}

// LoadRAM restores previously saved battery-backed PRG-RAM.
func (app *Application) LoadRAM() error {
	if app.core == nil {
		return errors.New("no ROM loaded")
	}
	return app.saveRAM.Load(app.core, app.romPath)
}

// Reset resets the emulator
func (app *Application) Reset() {
	if app.core != nil {
		app.core.Reset()
	}
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// IsMenuVisible returns whether the menu is visible
func (app *Application) IsMenuVisible() bool {
	return app.showMenu
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// ApplyDebugSettings applies debug settings to all components. Core has
// no execution-logging toggle the way bus.Bus did, so this is now a no-op
// retained only so callers in cmd/gones don't need special-casing.
func (app *Application) ApplyDebugSettings() {}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Cleaning up application resources...")
	}

	var lastErr error

	if app.core != nil {
		if err := app.SaveRAM(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Save RAM error: %v\n", err)
		}
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Window cleanup error: %v\n", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Graphics backend cleanup error: %v\n", err)
		}
	}

	app.initialized = false
	if app.config != nil && app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Application cleanup complete")
	}

	return lastErr
}
