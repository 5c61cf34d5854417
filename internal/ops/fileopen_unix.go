//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/ccp-journal/ccp/internal/errors"
)

// openFileNoFollow opens path for writing with O_NOFOLLOW so the final path
// component cannot be a symlink. O_CLOEXEC keeps the descriptor out of child
// processes. Directory components are covered by ValidatePath, which only
// accepts files directly inside an allowed directory.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, errors.NewStorageUnavailable(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFileNoFollowRead is the read-only counterpart of openFileNoFollow.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewStorageUnavailable(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
