// Package app provides battery-backed save RAM persistence for the NES
// emulator.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gones/internal/nes"
)

// SaveRAMManager persists a cartridge's battery-backed PRG-RAM to disk,
// one file per ROM, the way a real NES cartridge keeps its save data in
// battery-backed SRAM rather than in a full emulator snapshot. This
// replaces the teacher's StateManager, whose ten-slot CPU/PPU/APU
// snapshotting was never actually wired up (restoreState() only logged
// that it would restore something); Core exposes no full-machine
// snapshot, only SaveRAM/LoadRAM, so that is the surface this persists.
type SaveRAMManager struct {
	saveDirectory string
}

// NewSaveRAMManager creates a manager rooted at saveDirectory, creating it
// if necessary.
func NewSaveRAMManager(saveDirectory string) *SaveRAMManager {
	if err := os.MkdirAll(saveDirectory, 0755); err != nil {
		fmt.Printf("Warning: save RAM directory could not be created: %v\n", err)
	}
	return &SaveRAMManager{saveDirectory: saveDirectory}
}

// path returns the .sav file for romPath, named after the ROM like a real
// emulator's battery save.
func (m *SaveRAMManager) path(romPath string) string {
	romName := filepath.Base(romPath)
	ext := filepath.Ext(romName)
	return filepath.Join(m.saveDirectory, romName[:len(romName)-len(ext)]+".sav")
}

// Save writes core's battery RAM to disk. A nil core.SaveRAM() (no
// battery, or a CHR/PRG-RAM-less cartridge) is a no-op, not an error.
func (m *SaveRAMManager) Save(core *nes.Core, romPath string) error {
	ram := core.SaveRAM()
	if ram == nil {
		return nil
	}
	return os.WriteFile(m.path(romPath), ram, 0644)
}

// Load restores previously saved battery RAM into core. A missing save
// file is not an error - it just means this is the cartridge's first run.
func (m *SaveRAMManager) Load(core *nes.Core, romPath string) error {
	data, err := os.ReadFile(m.path(romPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	core.LoadRAM(data)
	return nil
}

// HasSave reports whether a battery save exists for romPath.
func (m *SaveRAMManager) HasSave(romPath string) bool {
	_, err := os.Stat(m.path(romPath))
	return err == nil
}
