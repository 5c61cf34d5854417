package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oklog/ulid/v2"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// ExportSchemaVersion is written to the header of every export file.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string  // optional, default: {root}/exports/entries[-<tag>]-<timestamp>.jsonl
	Tag  *string // optional filter by tag
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	CcpExport     bool   `json:"_ccp_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes entries to a JSONL file: one header line, then one entry per
// line in id order. The file is written beside its destination and renamed
// into place, so an existing file survives a failed export.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := env.now()
	exportedAt := now.Unix()

	filter := docstore.Filter{}
	tag := cleanOptionalString(input.Tag)
	if tag != nil {
		filter["tags"] = docstore.Contains{Value: entry.NormalizeTag(*tag)}
	}

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		exportPath = defaultExportPath(env.Paths.ExportsDir(), tag, now.UTC().Format("2006-01-02T150405"))
		if err := os.MkdirAll(env.Paths.ExportsDir(), 0700); err != nil {
			return nil, errors.NewStorageUnavailable(fmt.Errorf("failed to create export directory: %w", err))
		}
	}

	// Validate ALL paths (both user-provided and default) for security
	if err := ValidatePath(exportPath, PathCheckWrite, env.Paths.ExportsDir(), env.Config); err != nil {
		return nil, err
	}

	tempPath := fmt.Sprintf("%s.%s.tmp", exportPath, ulid.Make())
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		CcpExport:     true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    exportedAt,
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	count := 0
	for e, err := range docstore.GetMany[entry.Entry](ctx, env.Docs, filter) {
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(e); err != nil {
			return nil, errors.NewStorageUnavailable(err)
		}
		count++
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewStorageUnavailable(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// Windows refuses to rename over an existing file. Fail and keep the
	// existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewStorageUnavailable(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	env.Logger.Info(ctx, "entries exported", "path", exportPath, "count", count)
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath builds {exportsDir}/entries[-<tag>]-<stamp>.jsonl.
func defaultExportPath(exportsDir string, tag *string, stamp string) string {
	name := "entries"
	if tag != nil {
		// Tags are user input; sanitize before they reach the filesystem.
		name += "-" + SanitizeForFilename(*tag)
	}
	return filepath.Join(exportsDir, fmt.Sprintf("%s-%s.jsonl", name, stamp))
}
