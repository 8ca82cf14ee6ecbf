// Package main implements the gones NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gones/internal/app"
	"gones/internal/nes"
	"gones/internal/version"
)

func main() {
	// Parse command line flags
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file (optional for GUI mode)")
		configFile = flag.String("config", "", "Path to configuration file")
		debug      = flag.Bool("debug", false, "Enable debug mode")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		sampleRate = flag.Int("samplerate", 44100, "Audio sample rate in Hz (headless mode)")
		seed       = flag.Int64("seed", 0x6502, "Power-up RAM randomization seed (headless mode)")
		help       = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *version {
		printVersion()
		os.Exit(0)
	}

	// Set up graceful shutdown
	setupGracefulShutdown()

	fmt.Println("🎮 gones - Go NES Emulator Starting...")

	if *nogui {
		// Headless mode drives the facade directly: no GUI host, no
		// window backend, just Core.Step/TakeFrame.
		if *romFile == "" {
			log.Fatal("ROM file required for headless mode")
		}
		runHeadlessMode(*romFile, *debug, *sampleRate, *seed)
		fmt.Println("👋 Emulator shutting down...")
		return
	}

	// Determine config file path
	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	// Create application
	application, err := app.NewApplicationWithMode(configPath, false)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	// Apply debug settings
	if *debug {
		config := application.GetConfig()
		config.UpdateDebug(true, true, true)
		application.ApplyDebugSettings()
		fmt.Println("🐛 Debug mode enabled")
	}

	// Load ROM if specified
	if *romFile != "" {
		fmt.Printf("📁 Loading ROM: %s\n", *romFile)
		if err := application.LoadROM(*romFile); err != nil {
			log.Fatalf("Failed to load ROM: %v", err)
		}
		fmt.Println("✅ ROM loaded successfully")

		// Re-apply debug settings after ROM load (PPU might be recreated)
		if *debug {
			application.ApplyDebugSettings()
		}
	}

	fmt.Println("🖥️  Starting GUI mode...")
	if err := runGUIMode(application); err != nil {
		log.Fatalf("GUI mode failed: %v", err)
	}

	fmt.Println("👋 Emulator shutting down...")
}

// runGUIMode runs the full GUI application
func runGUIMode(application *app.Application) error {
	fmt.Println("🚀 Initializing GUI application...")

	// Display startup information
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("   Window: %dx%d (Scale: %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("   Audio: %s (%d Hz, %.0f%% volume)\n",
		enabledString(config.Audio.Enabled),
		config.Audio.SampleRate,
		config.Audio.Volume*100)
	fmt.Printf("   Video: %s, %s, VSync: %s\n",
		config.Video.Filter,
		config.Video.AspectRatio,
		enabledString(config.Video.VSync))

	// Start the application
	fmt.Println("🎯 Starting main application loop...")
	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %v", err)
	}

	// Display shutdown statistics
	fmt.Printf("📊 Session Statistics:\n")
	fmt.Printf("   Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time: %v\n", application.GetUptime())
	fmt.Printf("   Average FPS: %.1f\n", application.GetFPS())

	return nil
}

// headlessFrameCount is how many video frames runHeadlessMode drives before
// stopping; roughly 2 seconds of NTSC output.
const headlessFrameCount = 120

// runHeadlessMode drives the facade directly with no window backend: load
// romFile, step it for headlessFrameCount video frames, and dump a few PPM
// screenshots plus a color histogram along the way.
func runHeadlessMode(romFile string, debug bool, sampleRate int, seed int64) {
	fmt.Println("Running emulator in headless mode...")
	fmt.Printf("Stepping %d frames and dumping screenshots\n", headlessFrameCount)

	rom, err := os.ReadFile(romFile)
	if err != nil {
		log.Fatalf("Failed to read ROM file: %v", err)
	}

	core, err := nes.NewWithSeed(rom, sampleRate, seed)
	if err != nil {
		log.Fatalf("Failed to load cartridge: %v", err)
	}

	for frame := 0; frame < headlessFrameCount; frame++ {
		for {
			result := core.Step()
			if err := core.Err(); err != nil {
				log.Fatalf("CPU halted: %v", err)
			}
			if result == nes.RunUntilFrame {
				break
			}
		}

		if frame == 30 || frame == 60 || frame == headlessFrameCount-1 {
			snapshot := core.TakeFrame()
			filename := fmt.Sprintf("frame_%03d.ppm", frame+1)
			fmt.Printf("📸 saving %s\n", filename)
			if err := saveFrameAsPPM(snapshot, filename); err != nil {
				fmt.Printf("❌ failed to write %s: %v\n", filename, err)
			} else {
				analyzeFrame(snapshot, frame+1)
			}
		}

		if debug && frame%30 == 29 {
			fmt.Printf("⏱️  %d/%d frames complete\n", frame+1, headlessFrameCount)
		}
	}

	fmt.Println("✅ headless run complete")
}

// saveFrameAsPPM writes frame as a PPM image.
func saveFrameAsPPM(frame *[256 * 240]color.RGBA, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "P3\n256 240\n255\n")
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			px := frame[y*256+x]
			fmt.Fprintf(file, "%d %d %d ", px.R, px.G, px.B)
		}
		fmt.Fprintln(file)
	}
	return nil
}

// analyzeFrame prints a quick color histogram for a screenshot frame.
func analyzeFrame(frame *[256 * 240]color.RGBA, frameNumber int) {
	colorCounts := make(map[color.RGBA]int)
	for _, px := range frame {
		colorCounts[px]++
	}

	nonBlack := 0
	for c, count := range colorCounts {
		if c.R != 0 || c.G != 0 || c.B != 0 {
			nonBlack += count
		}
	}

	fmt.Printf("   frame %d: %d distinct colors, %d non-black pixels (%.1f%%)\n",
		frameNumber, len(colorCounts), nonBlack,
		float64(nonBlack)/float64(256*240)*100)
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\n🛑 Interrupt received, shutting down gracefully...")
		os.Exit(0)
	}()
}

// enabledString returns "enabled" or "disabled" based on boolean value
func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printVersion() {
	version.PrintBuildInfo()
}

func printUsage() {
	fmt.Println("gones - Go NES Emulator")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A modern NES (Nintendo Entertainment System) emulator written in Go.")
	fmt.Println("  Features cycle-accurate emulation, Ebitengine graphics, and battery-backed")
	fmt.Println("  save RAM.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gones [options]                    # Start GUI mode without ROM")
	fmt.Println("  gones -rom <file> [options]        # Start with ROM loaded")
	fmt.Println("  gones -nogui -rom <file> [options] # Run headless mode")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  gones                              # Start GUI, load ROM from menu")
	fmt.Println("  gones -rom game.nes                # Start with ROM loaded")
	fmt.Println("  gones -rom game.nes -debug         # Start with debug info enabled")
	fmt.Println("  gones -config custom.json          # Use custom configuration")
	fmt.Println("  gones -nogui -rom test.nes         # Run headless for testing")
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("  Player 1:")
	fmt.Println("    Arrow Keys / WASD - D-Pad")
	fmt.Println("    J / Z             - A Button")
	fmt.Println("    K / X             - B Button")
	fmt.Println("    Enter             - Start")
	fmt.Println("    Space             - Select")
	fmt.Println()
	fmt.Println("  Special Keys:")
	fmt.Println("    Escape (2x)       - Quit (double-tap within 3 seconds)")
	fmt.Println("    F5                - Save battery RAM")
	fmt.Println("    F9                - Load battery RAM")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/gones.json")
	fmt.Println("  ROMs:        ./roms/")
	fmt.Println("  Save RAM:    ./saves/")
	fmt.Println("  Screenshots: ./screenshots/")
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  - iNES (.nes)")
	fmt.Println("  - NES 2.0 headers are read as iNES; NES 2.0 fields are ignored")
	fmt.Println("  - Mappers 0-4 (NROM, MMC1, UxROM, CNROM, MMC3)")
	fmt.Println()
	fmt.Println("For more information, visit the project documentation.")
}
