package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/LingoraLabs/lingocache"
)

// exportVersion identifies the export file layout.
const exportVersion = "1.0"

// zstExtension marks export files that are zstd-compressed.
const zstExtension = ".zst"

// ExportFormat is the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry is one cached (project, language) payload.
type ExportEntry struct {
	Project   string             `json:"project"`
	Lang      string             `json:"lang"`
	Data      lingocache.Payload `json:"data"`
	CachedAt  int64              `json:"cachedAt,omitempty"`
	ExpiresAt int64              `json:"expiresAt,omitempty"`
}

// Exporter dumps a durable tier's live entries for backup or seeding
// another environment.
type Exporter struct {
	store PersistentCache
}

// NewExporter creates an exporter over a store.
func NewExporter(store PersistentCache) *Exporter {
	return &Exporter{store: store}
}

// Entries returns every live entry of the underlying store, sorted by
// project then language.
func (e *Exporter) Entries(ctx context.Context) ([]ExportEntry, error) {
	entries, err := e.collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting cache entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Project != entries[j].Project {
			return entries[i].Project < entries[j].Project
		}
		return entries[i].Lang < entries[j].Lang
	})
	return entries, nil
}

// Export writes every live entry to w in JSON format. Entries are sorted
// by project then language so repeated exports of the same state are
// byte-identical.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) error {
	entries, err := e.Entries(ctx)
	if err != nil {
		return err
	}

	export := ExportFormat{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ExportToFile exports the cache to a file. A path ending in ".zst" is
// zstd-compressed. The path is provided by the caller and is intentionally
// user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) error {
	if strings.HasSuffix(path, zstExtension) {
		var buf bytes.Buffer
		if err := e.Export(ctx, &buf, metadata); err != nil {
			return err
		}
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		compressed := enc.EncodeAll(buf.Bytes(), nil)
		enc.Close()
		if err := os.WriteFile(path, compressed, 0o644); err != nil {
			return fmt.Errorf("writing file: %w", err)
		}
		return nil
	}

	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// collect extracts all live entries from the store.
func (e *Exporter) collect(ctx context.Context) ([]ExportEntry, error) {
	switch s := e.store.(type) {
	case *FileStore:
		return s.snapshot(ctx)
	case *RedisStore:
		return s.snapshot(ctx)
	case interface{ Unwrap() PersistentCache }:
		return (&Exporter{store: s.Unwrap()}).collect(ctx)
	default:
		return nil, fmt.Errorf("store type %T does not support export", e.store)
	}
}

// Importer loads exported entries into a durable tier.
type Importer struct {
	store PersistentCache
}

// NewImporter creates an importer over a store.
func NewImporter(store PersistentCache) *Importer {
	return &Importer{store: store}
}

// Import reads an export from r and saves every entry. Entries that fail
// to save are counted and skipped; one bad entry does not abort the rest.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	for _, entry := range export.Entries {
		if err := i.store.SaveProject(ctx, entry.Project, entry.Lang, entry.Data); err != nil {
			if lingocache.IsCancelled(err) {
				return result, err
			}
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ImportFromFile imports entries from a file. A path ending in ".zst" is
// decompressed first. The path is provided by the caller and is
// intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	if strings.HasSuffix(path, zstExtension) {
		raw, err := os.ReadFile(path) // #nosec G304 - path is intentionally user-provided
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		plain, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing: %w", err)
		}
		return i.Import(ctx, bytes.NewReader(plain))
	}

	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
}
