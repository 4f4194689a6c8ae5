package tools

import (
	"path/filepath"

	"pmk/internal/platform"
)

const (
	armGCCBase = "https://developer.arm.com/-/media/Files/downloads/gnu/14.2.rel1/binrel/"
	cmakeBase  = "https://github.com/Kitware/CMake/releases/download/v3.31.4/"
	ninjaBase  = "https://github.com/nicknisi/ninja/releases/download/v1.12.1/"

	// StagingFolder is the scratch directory under the managed tree that
	// holds downloads while setup runs.
	StagingFolder = "_tmp"
)

// DefaultCatalog returns the toolchain description for the Pico firmware
// build. externalRoot is the Pico VS Code extension tree (usually
// ~/.pico-sdk).
func DefaultCatalog(externalRoot string) *Catalog {
	return &Catalog{
		Tools: []ToolSpec{
			{
				Name:       "ARM GCC",
				Folder:     "arm-gcc",
				Executable: "arm-none-eabi-gcc",
				URLs: map[platform.Key]string{
					platform.Windows: armGCCBase + "arm-gnu-toolchain-14.2.rel1-mingw-w64-i686-arm-none-eabi.zip",
					platform.Linux:   armGCCBase + "arm-gnu-toolchain-14.2.rel1-x86_64-arm-none-eabi.tar.xz",
					platform.MacOS:   armGCCBase + "arm-gnu-toolchain-14.2.rel1-darwin-arm64-arm-none-eabi.tar.xz",
				},
			},
			{
				Name:       "CMake",
				Folder:     "cmake",
				Executable: "cmake",
				URLs: map[platform.Key]string{
					platform.Windows: cmakeBase + "cmake-3.31.4-windows-x86_64.zip",
					platform.Linux:   cmakeBase + "cmake-3.31.4-linux-x86_64.tar.gz",
					platform.MacOS:   cmakeBase + "cmake-3.31.4-macos-universal.tar.gz",
				},
			},
			{
				Name:       "Ninja",
				Folder:     "ninja",
				Executable: "ninja",
				URLs: map[platform.Key]string{
					platform.Windows: ninjaBase + "ninja-win.zip",
					platform.Linux:   ninjaBase + "ninja-linux.zip",
					platform.MacOS:   ninjaBase + "ninja-mac.zip",
				},
			},
		},
		SDK: SDKSpec{
			Name:    "Pico SDK",
			Version: "2.1.1",
			URL:     "https://github.com/raspberrypi/pico-sdk/archive/refs/tags/2.1.1.zip",
			Folder:  "pico-sdk",
			EnvVar:  "PICO_SDK_PATH",
			ExternalDirs: []string{
				filepath.Join(externalRoot, "sdk", "2.2.0"),
				filepath.Join(externalRoot, "sdk", "2.1.1"),
				filepath.Join(externalRoot, "sdk", "2.1.0"),
				filepath.Join(externalRoot, "sdk", "2.0.0"),
			},
			Dependency: SDKDependency{
				Name:       "TinyUSB",
				Path:       "lib/tinyusb",
				Repository: "https://github.com/hathach/tinyusb.git",
				Ref:        "0.18.0",
			},
		},
		Flasher: FlasherSpec{
			Executable: "picotool",
			Fallbacks: []string{
				filepath.Join(externalRoot, "picotool", "2.2.0-a4", "picotool", "picotool.exe"),
				filepath.Join(externalRoot, "picotool", "2.2.0-a4", "picotool", "picotool"),
				filepath.Join(externalRoot, "picotool", "2.2.0", "picotool", "picotool.exe"),
				filepath.Join(externalRoot, "picotool", "2.2.0", "picotool", "picotool"),
			},
		},
		ExternalLayout: []ExternalTool{
			{Dir: "toolchain", BinSubdir: "bin"},
			{Dir: "cmake", BinSubdir: "bin"},
			{Dir: "ninja", BinSubdir: ""},
		},
	}
}

// Clone returns a deep copy so overrides never leak into the original.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		SDK:     c.SDK,
		Flasher: c.Flasher,
	}
	out.SDK.ExternalDirs = append([]string(nil), c.SDK.ExternalDirs...)
	out.Flasher.Fallbacks = append([]string(nil), c.Flasher.Fallbacks...)
	out.ExternalLayout = append([]ExternalTool(nil), c.ExternalLayout...)
	out.Tools = make([]ToolSpec, len(c.Tools))
	for i, t := range c.Tools {
		t.URLs = cloneKeyMap(t.URLs)
		t.Checksums = cloneKeyMap(t.Checksums)
		out.Tools[i] = t
	}
	return out
}

func cloneKeyMap(m map[platform.Key]string) map[platform.Key]string {
	if m == nil {
		return nil
	}
	out := make(map[platform.Key]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
