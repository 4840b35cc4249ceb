//go:build windows

package ops

import "os"

// createExportFile creates a new file exclusively. Windows has no O_NOFOLLOW;
// ValidateExportPath has already rejected a symlinked destination.
func createExportFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
}
