package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LingoraLabs/lingocache"
)

const (
	payloadFileName  = "payload.json"
	manifestFileName = "manifest.json"
)

// Manifest records the provenance and lifetime of one cached payload. It
// is the sole expiration authority for the file tier; the payload file
// carries no metadata of its own. Timestamps are epoch milliseconds.
type Manifest struct {
	Project   string `json:"project"`
	Lang      string `json:"lang"`
	CachedAt  int64  `json:"cachedAt"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // zero means never
}

// FileConfig holds configuration for the file-backed cache tier.
type FileConfig struct {
	Dir string        // cache root; created if missing
	TTL time.Duration // entry lifetime; 0 or negative means entries never expire
}

// FileStore persists each (project, language) payload as a
// payload.json/manifest.json pair under Dir/project/lang. Writes stage
// temp files and rename them into place, so a concurrent reader observes
// either the previous pair or the new one, never a torn file.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

var _ PersistentCache = (*FileStore)(nil)

// NewFileStore creates the cache root if needed and returns a store over
// it.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, &lingocache.InvalidArgumentError{Param: "cfg.Dir"}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &lingocache.StorageUnavailableError{Backend: "file", Cause: err}
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &FileStore{dir: cfg.Dir, ttl: ttl, now: time.Now}, nil
}

// Dir returns the cache root.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) pairDir(project, lang string) string {
	return filepath.Join(s.dir, project, lang)
}

// GetProject returns the cached payload for a (project, language) pair.
// A missing or expired pair is a plain miss. A manifest that promises a
// payload which turns out to be absent or undecodable is an error: the
// entry claimed to be valid and is not.
func (s *FileStore) GetProject(ctx context.Context, project, lang string) (lingocache.Payload, bool, error) {
	if err := opStart(ctx, "get project"); err != nil {
		return nil, false, err
	}
	if err := requirePair(project, lang); err != nil {
		return nil, false, err
	}

	dir := s.pairDir(project, lang)
	m, ok, err := s.readManifest(dir, project, lang)
	if err != nil || !ok {
		return nil, false, err
	}
	if s.manifestExpired(m) {
		return nil, false, nil
	}

	payloadPath := filepath.Join(dir, payloadFileName)
	raw, err := os.ReadFile(payloadPath)
	if err != nil {
		return nil, false, &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	var payload lingocache.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, &lingocache.CorruptedEntryError{Path: payloadPath, Project: project, Lang: lang, Cause: err}
	}
	return payload, true, nil
}

// GetGroup returns one group out of the cached payload. The group being
// absent from an otherwise cached payload is a miss, not an error.
func (s *FileStore) GetGroup(ctx context.Context, project, group, lang string) (lingocache.Group, bool, error) {
	if err := requireGroup(group); err != nil {
		return nil, false, err
	}
	payload, ok, err := s.GetProject(ctx, project, lang)
	if err != nil || !ok {
		return nil, false, err
	}
	g, ok := payload[group]
	return g, ok, nil
}

// SaveProject writes the payload and a fresh manifest for the pair. The
// payload lands first: a crash between the two renames leaves a payload
// without a manifest, which readers treat as a miss.
func (s *FileStore) SaveProject(ctx context.Context, project, lang string, payload lingocache.Payload) error {
	if err := opStart(ctx, "save project"); err != nil {
		return err
	}
	if err := requirePair(project, lang); err != nil {
		return err
	}

	dir := s.pairDir(project, lang)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}

	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	now := s.now()
	m := Manifest{Project: project, Lang: lang, CachedAt: now.UnixMilli()}
	if s.ttl > 0 {
		m.ExpiresAt = now.Add(s.ttl).UnixMilli()
	}
	manifestRaw, err := json.Marshal(m)
	if err != nil {
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}

	payloadTmp, err := stageTemp(dir, "payload-*.tmp", payloadRaw)
	if err != nil {
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	manifestTmp, err := stageTemp(dir, "manifest-*.tmp", manifestRaw)
	if err != nil {
		os.Remove(payloadTmp)
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}

	if err := os.Rename(payloadTmp, filepath.Join(dir, payloadFileName)); err != nil {
		os.Remove(payloadTmp)
		os.Remove(manifestTmp)
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	if err := os.Rename(manifestTmp, filepath.Join(dir, manifestFileName)); err != nil {
		os.Remove(manifestTmp)
		return &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	return nil
}

// IsCached reports whether a live entry exists for the pair: manifest
// present and unexpired, payload file present. Absence in any form is
// false, not an error.
func (s *FileStore) IsCached(ctx context.Context, project, lang string) (bool, error) {
	if err := opStart(ctx, "is cached"); err != nil {
		return false, err
	}
	if err := requirePair(project, lang); err != nil {
		return false, err
	}

	dir := s.pairDir(project, lang)
	m, ok, err := s.readManifest(dir, project, lang)
	if err != nil || !ok {
		return false, err
	}
	if s.manifestExpired(m) {
		return false, nil
	}
	if _, err := os.Stat(filepath.Join(dir, payloadFileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	return true, nil
}

// ClearAll removes the entire cache tree. Clearing an already absent tree
// succeeds.
func (s *FileStore) ClearAll(ctx context.Context) error {
	if err := opStart(ctx, "clear all"); err != nil {
		return err
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return &lingocache.IOError{Dir: s.dir, Cause: err}
	}
	return nil
}

// readManifest loads the manifest for a pair directory. A missing file is
// a plain miss. A manifest that fails to decode is removed together with
// its payload and reported as a miss; without a readable manifest the pair
// is unusable anyway.
func (s *FileStore) readManifest(dir, project, lang string) (*Manifest, bool, error) {
	manifestPath := filepath.Join(dir, manifestFileName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &lingocache.IOError{Dir: dir, Project: project, Lang: lang, Cause: err}
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		os.Remove(manifestPath)
		os.Remove(filepath.Join(dir, payloadFileName))
		return nil, false, nil
	}
	return &m, true, nil
}

func (s *FileStore) manifestExpired(m *Manifest) bool {
	return m.ExpiresAt > 0 && s.now().UnixMilli() >= m.ExpiresAt
}

// stageTemp writes data to a fresh temp file in dir and returns its path.
// The file is removed on any failure.
func stageTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		os.Remove(f.Name())
		return "", werr
	}
	if cerr != nil {
		os.Remove(f.Name())
		return "", cerr
	}
	return f.Name(), nil
}

// snapshot walks the cache tree and returns every live entry, for export.
// Pairs that are expired, incomplete, or unreadable are skipped rather
// than failing the walk.
func (s *FileStore) snapshot(ctx context.Context) ([]ExportEntry, error) {
	projects, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &lingocache.IOError{Dir: s.dir, Cause: err}
	}

	var (
		mu      sync.Mutex
		entries []ExportEntry
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		project := p.Name()
		langs, err := os.ReadDir(filepath.Join(s.dir, project))
		if err != nil {
			continue
		}
		for _, l := range langs {
			if !l.IsDir() {
				continue
			}
			lang := l.Name()
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				dir := s.pairDir(project, lang)
				m, ok, err := s.readManifest(dir, project, lang)
				if err != nil || !ok || s.manifestExpired(m) {
					return nil
				}
				raw, err := os.ReadFile(filepath.Join(dir, payloadFileName))
				if err != nil {
					return nil
				}
				var payload lingocache.Payload
				if err := json.Unmarshal(raw, &payload); err != nil {
					return nil
				}
				mu.Lock()
				entries = append(entries, ExportEntry{
					Project:   project,
					Lang:      lang,
					Data:      payload,
					CachedAt:  m.CachedAt,
					ExpiresAt: m.ExpiresAt,
				})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, &lingocache.CancelledError{Op: "export snapshot", Cause: err}
	}
	return entries, nil
}
