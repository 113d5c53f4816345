package utils

import "runtime"

// CurrentOS names the host platform for capability warnings. Window queries
// and input dispatch assume an X11 session, so callers warn on anything but
// linux.
func CurrentOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	case "linux":
		return "linux"
	}
	return "unknown"
}
