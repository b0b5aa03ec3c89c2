package config

import "runtime"

// defaultDevice returns the first camera in the platform's naming scheme.
func defaultDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "0"
	case "windows":
		return "video=Integrated Camera"
	default:
		return "/dev/video0"
	}
}
