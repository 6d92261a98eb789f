//go:build !darwin

package platform

// IsAppActive always reports true outside macOS
func IsAppActive() bool {
	return true
}

// ActivateApp is a no-op outside macOS
func ActivateApp() {}
