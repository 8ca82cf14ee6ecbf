package bus

// Test helper methods for bus testing

// SetFrameBufferForTesting sets a frame buffer for testing purposes
func (b *Bus) SetFrameBufferForTesting(frameBuffer [256 * 240]uint32) {
	if b.PPU != nil {
		b.PPU.SetFrameBufferForTesting(frameBuffer)
	}
}

// StepWithError executes one emulation step and returns any error (exposed for testing)
func (b *Bus) StepWithError() error {
	if b.dmaInProgress && b.dmaSuspendCycles > 0 {
		b.dmaSuspendCycles--
		b.totalCycles++
		return nil
	}

	if b.dmaInProgress && b.dmaSuspendCycles == 0 {
		b.dmaInProgress = false
	}

	if b.CPU != nil {
		cycles := b.CPU.Step()

		b.cpuCycles += cycles

		if b.PPU != nil {
			for i := uint64(0); i < cycles*3; i++ {
				b.PPU.Step()
				b.ppuCycles++
			}
			b.frameCount = b.PPU.GetFrameCount()
		}

		b.totalCycles += cycles
	}

	return b.CPU.Err
}
