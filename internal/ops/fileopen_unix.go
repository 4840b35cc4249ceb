//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/partbridge/internal/errors"
)

// createExportFile creates a new file exclusively, refusing to follow a
// symlink in the final component. Directory components are covered by
// ValidateExportPath.
func createExportFile(path string) (*os.File, error) {
	fd, err := syscall.Open(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0o600)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
