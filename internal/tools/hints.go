package tools

import "pmk/internal/platform"

// ManualFlashHint tells the user how to flash without picotool.
const ManualFlashHint = "Hold BOOTSEL while plugging in the board, then copy the .uf2 file to the RPI-RP2 drive."

// SetupHint points at the command that installs the managed toolchain.
const SetupHint = "Run 'pmk setup' to download it."

// InstallHints returns user-facing instructions for obtaining a missing tool.
func InstallHints(tool string, key platform.Key) []string {
	if tool != "picotool" {
		return []string{SetupHint}
	}
	hints := []string{"Install the Raspberry Pi Pico VS Code extension, which ships picotool."}
	switch key {
	case platform.MacOS:
		hints = append(hints, "or via Homebrew: brew install picotool")
	case platform.Linux:
		hints = append(hints, "or build it from https://github.com/raspberrypi/picotool")
	}
	return append(hints, ManualFlashHint)
}
