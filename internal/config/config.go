// Package config parses the small set of flags the nes facade needs to
// boot a cartridge, separate from the GUI host's much larger app.Config.
package config

import (
	"errors"
	"flag"
)

// Config holds the facade's boot-time parameters.
type Config struct {
	ROMPath    string
	SampleRate int
	Debug      bool
	Seed       int64
}

// defaults mirror the values the teacher's app.Config falls back to for
// the same concerns (44.1kHz audio, debug off).
const (
	defaultSampleRate = 44100
	defaultSeed       = 0x6502
)

// ErrNoROM is returned by Parse when -rom was not supplied.
var ErrNoROM = errors.New("config: -rom is required")

// Parse reads args (normally os.Args[1:]) into a Config.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("gones", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.ROMPath, "rom", "", "path to an iNES ROM file")
	fs.IntVar(&cfg.SampleRate, "samplerate", defaultSampleRate, "audio sample rate in Hz")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	fs.Int64Var(&cfg.Seed, "seed", defaultSeed, "power-up RAM randomization seed")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ROMPath == "" {
		return nil, ErrNoROM
	}

	return cfg, nil
}
