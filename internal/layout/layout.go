// Package layout derives every on-disk location from the storage root and
// entry identifiers. The layout is shared with existing stores and must not
// change:
//
//	{root}/ccp.json
//	{root}/store/CCP.db
//	{root}/store/{id/100}/{id}.mp4
//	{root}/temp/{id}/pass_1.mp4
//	{root}/temp/{id}/pass_1.txt
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ccp-journal/ccp/internal/entry"
)

const (
	AggregateFileName = "ccp.json"
	DatabaseFileName  = "CCP.db"
	storeDirName      = "store"
	tempDirName       = "temp"
	exportsDirName    = "exports"
	workFileName      = "pass_1.mp4"
	transcriptName    = "pass_1.txt"
	artifactExt       = ".mp4"
)

// Paths resolves locations under a storage root.
type Paths struct {
	Root string
}

// New returns Paths rooted at root.
func New(root string) Paths {
	return Paths{Root: root}
}

func (p Paths) AggregateFile() string {
	return filepath.Join(p.Root, AggregateFileName)
}

func (p Paths) StoreDir() string {
	return filepath.Join(p.Root, storeDirName)
}

func (p Paths) DatabaseFile() string {
	return filepath.Join(p.StoreDir(), DatabaseFileName)
}

func (p Paths) ExportsDir() string {
	return filepath.Join(p.Root, exportsDirName)
}

// BucketDir is {root}/store/{id/100}.
func (p Paths) BucketDir(id entry.ID) string {
	return filepath.Join(p.StoreDir(), strconv.FormatInt(id.Bucket(), 10))
}

// OutPath is the final artifact path {root}/store/{id/100}/{id}.mp4.
func (p Paths) OutPath(id entry.ID) string {
	return filepath.Join(p.BucketDir(id), id.String()+artifactExt)
}

// TempDir is the working directory {root}/temp/{id}.
func (p Paths) TempDir(id entry.ID) string {
	return filepath.Join(p.Root, tempDirName, id.String())
}

// TempPath is the working artifact {root}/temp/{id}/pass_1.mp4.
func (p Paths) TempPath(id entry.ID) string {
	return filepath.Join(p.TempDir(id), workFileName)
}

// TranscriptPath is {root}/temp/{id}/pass_1.txt.
func (p Paths) TranscriptPath(id entry.ID) string {
	return filepath.Join(p.TempDir(id), transcriptName)
}

// EnsureOutPath creates the bucket directory and returns OutPath.
func (p Paths) EnsureOutPath(id entry.ID) (string, error) {
	if err := os.MkdirAll(p.BucketDir(id), 0755); err != nil {
		return "", fmt.Errorf("create bucket directory: %w", err)
	}
	return p.OutPath(id), nil
}

// EnsureTempPath creates the entry's temp directory and returns TempPath.
func (p Paths) EnsureTempPath(id entry.ID) (string, error) {
	if err := os.MkdirAll(p.TempDir(id), 0755); err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	return p.TempPath(id), nil
}
