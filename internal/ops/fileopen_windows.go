//go:build windows

package ops

import (
	"os"

	"github.com/ccp-journal/ccp/internal/errors"
)

// openFileNoFollow opens path for writing. Windows has no O_NOFOLLOW;
// ValidatePath has already rejected symlinks.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	return f, nil
}

// openFileNoFollowRead opens path for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewStorageUnavailable(err)
	}
	return f, nil
}
