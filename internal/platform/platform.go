package platform

import "runtime"

// Key identifies the host platform family used to select downloads and
// executable names.
type Key string

const (
	Windows Key = "windows"
	MacOS   Key = "macos"
	Linux   Key = "linux"
)

// Keys returns every supported platform key.
func Keys() []Key {
	return []Key{Windows, MacOS, Linux}
}

// Current classifies the running host.
func Current() Key {
	return Classify(runtime.GOOS)
}

// Classify maps a GOOS value to a platform key. Unrecognised hosts are
// treated as generic POSIX and map to Linux.
func Classify(goos string) Key {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	default:
		return Linux
	}
}

// ExecutableSuffix returns the file suffix executables carry on this platform.
func (k Key) ExecutableSuffix() string {
	if k == Windows {
		return ".exe"
	}
	return ""
}

// ExecutableName appends the platform suffix to base.
func (k Key) ExecutableName(base string) string {
	return base + k.ExecutableSuffix()
}

func (k Key) String() string {
	return string(k)
}
