package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ccp-journal/ccp/internal/config"
	"github.com/ccp-journal/ccp/internal/errors"
)

// PathCheckMode says whether a path is about to be read (import) or written
// (export).
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

// Accepted file extensions per mode.
var (
	importExtensions = []string{".json", ".jsonl", ".yaml", ".yml"}
	exportExtensions = []string{".jsonl"}
)

func (m PathCheckMode) extensions() []string {
	if m == PathCheckRead {
		return importExtensions
	}
	return exportExtensions
}

// ValidatePath decides whether an import or export may use path.
//
// The path must not contain "..", must carry an extension accepted for mode
// and must not be a symlink. Unless cfg.AllowUnsafePaths is set, the file
// must sit directly in exportsDir or in one of cfg.AllowedPaths; nested
// directories are refused so no intermediate component can be swapped for a
// symlink between this check and the O_NOFOLLOW open. In read mode the file
// must exist.
func ValidatePath(path string, mode PathCheckMode, exportsDir string, cfg *config.Config) error {
	abs, err := resolveTransferPath(path, mode)
	if err != nil {
		return err
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkConfined(abs, exportsDir, cfg); err != nil {
			return err
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// resolveTransferPath applies the checks that need no filesystem access and
// returns the absolute form of path.
func resolveTransferPath(path string, mode PathCheckMode) (string, error) {
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if ext := strings.ToLower(filepath.Ext(cleaned)); !slices.Contains(mode.extensions(), ext) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must have one of the extensions %v", mode.extensions()))
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	return abs, nil
}

// checkConfined requires abs to sit directly in an allowed directory whose
// own entry is not a symlink.
func checkConfined(abs, exportsDir string, cfg *config.Config) error {
	allowed, err := allowedDirs(exportsDir, cfg)
	if err != nil {
		return err
	}

	parent := filepath.Dir(abs)
	if !slices.Contains(allowed, parent) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
	}
	if isSymlink(parent) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// allowedDirs lists exportsDir and the absolute entries of
// cfg.AllowedPaths, cleaned. An entry that is itself a symlink is replaced
// by its target.
func allowedDirs(exportsDir string, cfg *config.Config) ([]string, error) {
	candidates := []string{exportsDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			if abs, err = filepath.EvalSymlinks(abs); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

// isSymlink reports whether path exists and is a symlink.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// containsTraversal reports whether any component of path, split on the OS
// separator or on '/', is "..".
func containsTraversal(path string) bool {
	isSep := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, isSep), "..")
}

// SanitizeForFilename turns user input such as a tag into a safe file name
// fragment. Separators and ".." become dashes, control characters are
// dropped, runs of dashes collapse and leading or trailing dashes are
// trimmed. An empty result becomes "unnamed".
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	if s = strings.Trim(s, "-"); s == "" {
		return "unnamed"
	}
	return s
}
