package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/ccp-journal/ccp/internal/aggregate"
	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/search"
)

// MaxImportLineBytes bounds a single JSONL line.
const MaxImportLineBytes = 4 << 20

// MaxImportID is the largest id an imported record may carry. It is the
// largest integer a JSON number holds exactly, and leaves the allocator room
// to continue after it.
const MaxImportID entry.ID = 1<<53 - 1

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required: .json, .jsonl, .yaml or .yml
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	BatchID  string        `json:"batch_id"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	IDs      []entry.ID    `json:"ids"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	// Record is the 1-based position of the record: the line number for
	// JSONL, the element number otherwise.
	Record  int      `json:"record"`
	ID      entry.ID `json:"id,omitempty"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// rawRecord is one undecoded record and its position in the file.
type rawRecord struct {
	pos    int
	decode func(now time.Time) (entry.Entry, error)
}

// Import loads entries from a file written by an importer or by Export.
//
// A record is either a BulkImportRecord (one array per field, of which only
// the first element is used) or an entry as Export writes it. A record with
// an id keeps it and fails with DUPLICATE_KEY if the id is taken; a record
// without one is allocated a fresh id. Failing records are reported and
// skipped; the rest are imported.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if err := ValidatePath(input.Path, PathCheckRead, env.Paths.ExportsDir(), env.Config); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out := &ImportOutput{
		BatchID: ulid.Make().String(),
		IDs:     []entry.ID{},
		Errors:  []ImportError{},
	}
	logger := env.Logger.With("batch", out.BatchID)

	records, err := parseImportFile(file, strings.ToLower(filepath.Ext(input.Path)), out)
	if err != nil {
		return nil, err
	}

	var imported []entry.Entry
	for _, rec := range records {
		e, err := rec.decode(env.now())
		if err == nil {
			e, err = importEntry(ctx, env, e)
		}
		if err != nil {
			out.Errors = append(out.Errors, ImportError{
				Record:  rec.pos,
				ID:      e.ID,
				Code:    string(errors.CodeOf(err)),
				Message: err.Error(),
			})
			out.Skipped++
			continue
		}
		imported = append(imported, e)
		out.IDs = append(out.IDs, e.ID)
		out.Imported++
	}

	if len(imported) > 0 {
		_, err := env.Aggregate.Update(func(r *aggregate.Root) error {
			for _, e := range imported {
				r.Apply(nil, e)
			}
			return nil
		})
		if err != nil {
			logger.Error(ctx, "entries imported but aggregate not updated; run repair", "count", len(imported), "error", err)
			return nil, err
		}
	}

	logger.Info(ctx, "import finished", "path", input.Path, "imported", out.Imported, "skipped", out.Skipped)
	return out, nil
}

// importEntry stores one decoded entry and indexes it.
func importEntry(ctx context.Context, env *Env, e entry.Entry) (entry.Entry, error) {
	e.Title = entry.NormalizeTitle(e.Title)
	e.Tags = entry.NormalizeTags(e.Tags)
	if e.Date.IsZero() {
		e.Date = env.today()
	}
	if err := validateMeasure("size", e.Size); err != nil {
		return e, err
	}
	if err := validateMeasure("duration", e.Duration); err != nil {
		return e, err
	}
	if e.ID < 0 {
		return e, errors.NewInvalidRequest("id must not be negative")
	}
	if e.ID > MaxImportID {
		return e, errors.NewInvalidRequest(fmt.Sprintf("id must not exceed %d", MaxImportID))
	}

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	if e.ID == 0 {
		id, err := env.Alloc.Allocate(ctx)
		if err != nil {
			return e, err
		}
		e.ID = id
		if err := docstore.Insert(ctx, env.Docs, e); err != nil {
			env.Logger.Warn(ctx, "identifier burnt: entry insert failed", "id", id, "error", err)
			return e, err
		}
	} else {
		if err := docstore.Insert(ctx, env.Docs, e); err != nil {
			return e, err
		}
		// Keep future allocations clear of imported ids.
		if err := env.Alloc.Bootstrap(ctx, int64(e.ID)); err != nil {
			return e, err
		}
	}

	doc, err := search.Project(env.Schema, e)
	if err != nil {
		return e, err
	}
	if err := env.Index.Put(ctx, doc); err != nil {
		return e, err
	}
	return e, nil
}

// parseImportFile splits r into records according to ext. Records that
// cannot even be split out are reported in out.
func parseImportFile(r io.Reader, ext string, out *ImportOutput) ([]rawRecord, error) {
	switch ext {
	case ".jsonl":
		return parseJSONL(r, out), nil
	case ".json":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.NewStorageUnavailable(err)
		}
		return parseJSONDocument(data)
	case ".yaml", ".yml":
		return parseYAML(r)
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported import format %q", ext))
	}
}

func parseJSONL(r io.Reader, out *ImportOutput) []rawRecord {
	var records []rawRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxImportLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw := append(json.RawMessage(nil), line...)
		if isExportHeader(raw) {
			continue
		}
		records = append(records, jsonRecord(lineNum, raw))
	}

	if err := scanner.Err(); err != nil {
		out.Errors = append(out.Errors, ImportError{
			Record:  lineNum + 1,
			Code:    string(errors.ErrStorageUnavailable),
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records
}

// parseJSONDocument accepts a single record or an array of records.
func parseJSONDocument(data []byte) ([]rawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != '[' {
		return []rawRecord{jsonRecord(1, trimmed)}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, errors.NewSerialization(err)
	}
	records := make([]rawRecord, 0, len(elems))
	for i, raw := range elems {
		if isExportHeader(raw) {
			continue
		}
		records = append(records, jsonRecord(i+1, raw))
	}
	return records, nil
}

// parseYAML accepts one or more YAML documents, each a bulk record or a list
// of them.
func parseYAML(r io.Reader) ([]rawRecord, error) {
	var records []rawRecord
	dec := yaml.NewDecoder(r)
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.NewSerialization(err)
		}

		node := &doc
		if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
			node = node.Content[0]
		}

		items := []*yaml.Node{node}
		if node.Kind == yaml.SequenceNode {
			items = node.Content
		}
		for _, item := range items {
			records = append(records, yamlRecord(len(records)+1, item))
		}
	}
}

func yamlRecord(pos int, node *yaml.Node) rawRecord {
	return rawRecord{pos: pos, decode: func(now time.Time) (entry.Entry, error) {
		var rec entry.BulkImportRecord
		if err := node.Decode(&rec); err != nil {
			return entry.Entry{}, errors.NewSerialization(err)
		}
		return rec.ToEntry(now)
	}}
}

// jsonRecord decodes raw as a BulkImportRecord when any entry field holds an
// array, and as an entry otherwise.
func jsonRecord(pos int, raw json.RawMessage) rawRecord {
	return rawRecord{pos: pos, decode: func(now time.Time) (entry.Entry, error) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return entry.Entry{}, errors.NewSerialization(err)
		}

		if isBulkShape(fields) {
			var rec entry.BulkImportRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return entry.Entry{}, errors.NewSerialization(err)
			}
			return rec.ToEntry(now)
		}

		var e entry.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return entry.Entry{}, errors.NewSerialization(err)
		}
		return e, nil
	}}
}

func isBulkShape(fields map[string]json.RawMessage) bool {
	for _, name := range []string{"id", "title", "timestamp", "text", "size", "duration"} {
		if v, ok := fields[name]; ok {
			if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
				return true
			}
		}
	}
	return false
}

func isExportHeader(raw json.RawMessage) bool {
	var header ExportHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return false
	}
	return header.CcpExport
}
