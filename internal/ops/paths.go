package ops

import (
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// PathsOutput lists the artifact locations of an entry.
type PathsOutput struct {
	ID         entry.ID `json:"id"`
	Out        string   `json:"out"`
	Temp       string   `json:"temp"`
	Transcript string   `json:"transcript"`
}

// ArtifactPaths returns where the artifacts of id live. The paths are derived
// from the id alone; nothing is created.
func ArtifactPaths(env *Env, id entry.ID) *PathsOutput {
	return &PathsOutput{
		ID:         id,
		Out:        env.Paths.OutPath(id),
		Temp:       env.Paths.TempPath(id),
		Transcript: env.Paths.TranscriptPath(id),
	}
}

// EnsureArtifactPaths is ArtifactPaths that also creates the bucket and
// temp directories.
func EnsureArtifactPaths(env *Env, id entry.ID) (*PathsOutput, error) {
	out, err := env.Paths.EnsureOutPath(id)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	temp, err := env.Paths.EnsureTempPath(id)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	return &PathsOutput{
		ID:         id,
		Out:        out,
		Temp:       temp,
		Transcript: env.Paths.TranscriptPath(id),
	}, nil
}
