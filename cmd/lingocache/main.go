// Command lingocache manages a durable cache of translation payloads.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/LingoraLabs/lingocache"
	"github.com/LingoraLabs/lingocache/store"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = lingocache.Version
	commit    = lingocache.GitCommit
	buildDate = lingocache.BuildDate
)

// envConfig carries environment defaults. Flags take precedence.
type envConfig struct {
	Dir       string        `env:"LINGOCACHE_DIR"`
	RedisURL  string        `env:"LINGOCACHE_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	TTL       time.Duration `env:"LINGOCACHE_TTL"`
	KeyPrefix string        `env:"LINGOCACHE_KEY_PREFIX"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lingocache", flag.ContinueOnError)
	fs.SetOutput(stderr)

	envCfg, err := env.ParseAs[envConfig]()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if envCfg.Dir == "" {
		envCfg.Dir = defaultCacheDir()
	}

	// Backend selection
	backend := fs.String("backend", "file", "Durable cache backend: file or redis")
	dir := fs.String("dir", envCfg.Dir, "Cache directory for the file backend (LINGOCACHE_DIR)")
	redisURL := fs.String("redis-url", envCfg.RedisURL, "Redis connection URL (LINGOCACHE_REDIS_URL)")
	ttl := fs.Duration("ttl", envCfg.TTL, "Entry lifetime, e.g. 24h; 0 means entries never expire (LINGOCACHE_TTL)")
	prefix := fs.String("prefix", envCfg.KeyPrefix, "Redis key prefix (LINGOCACHE_KEY_PREFIX)")
	retries := fs.Int("retries", 0, "Retry transient durable-tier failures this many times")

	// Actions (exactly one)
	getMode := fs.Bool("get", false, "Print the cached payload for -project and -lang")
	checkMode := fs.Bool("check", false, "Report whether a payload is cached for -project and -lang")
	saveFile := fs.String("save", "", "Cache the payload JSON read from this file (\"-\" for stdin)")
	diffFile := fs.String("diff", "", "Compare the cached payload with this file and show changes")
	warmMode := fs.Bool("warm", false, "Preload a memory tier for -projects x -langs and print stats")
	statsMode := fs.Bool("stats", false, "Summarize what the durable tier holds")
	clearMode := fs.Bool("clear", false, "Remove every cached payload")
	exportFile := fs.String("export", "", "Write all live entries to this file (a .zst suffix compresses)")
	importFile := fs.String("import", "", "Load entries from a previously exported file")

	// Action arguments
	project := fs.String("project", "", "Project identifier")
	lang := fs.String("lang", "", "Language code (e.g., de, pt_BR)")
	group := fs.String("group", "", "Restrict -get to a single translation group")
	projects := fs.String("projects", "", "Comma-separated project list for -warm")
	langs := fs.String("langs", "", "Comma-separated language list for -warm")
	maxEntries := fs.Int("max-entries", lingocache.DefaultMaxEntries, "Memory tier capacity for -warm")

	jsonOutput := fs.Bool("json", false, "Output results as JSON")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", lingocache.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	actions := 0
	for _, selected := range []bool{*getMode, *checkMode, *saveFile != "", *diffFile != "", *warmMode, *statsMode, *clearMode, *exportFile != "", *importFile != ""} {
		if selected {
			actions++
		}
	}
	if actions == 0 {
		fs.Usage()
		return fmt.Errorf("an action is required: -get, -check, -save, -diff, -warm, -stats, -clear, -export or -import")
	}
	if actions > 1 {
		return fmt.Errorf("-get, -check, -save, -diff, -warm, -stats, -clear, -export and -import are mutually exclusive")
	}

	*lang = lingocache.NormalizeLocale(*lang)

	logger := log.NewWithOptions(stderr, log.Options{ReportTimestamp: false})
	if *quiet {
		logger.SetLevel(log.ErrorLevel)
	}

	st, closeStore, err := openStore(*backend, *dir, *redisURL, *ttl, *prefix)
	if err != nil {
		return err
	}
	defer closeStore()

	if *retries > 0 {
		cfg := store.DefaultRetryConfig()
		cfg.MaxRetries = *retries
		st = store.NewRetryingStore(st, cfg)
	}

	ctx := context.Background()

	switch {
	case *getMode:
		return runGet(ctx, st, *project, *lang, *group, stdout)
	case *checkMode:
		return runCheck(ctx, st, *project, *lang, *jsonOutput, stdout)
	case *saveFile != "":
		return runSave(ctx, st, *saveFile, *project, *lang, *quiet, stderr)
	case *diffFile != "":
		return runDiff(ctx, st, *diffFile, *project, *lang, *jsonOutput, stdout)
	case *warmMode:
		return runWarm(ctx, st, *projects, *langs, *maxEntries, logger, *jsonOutput, stdout)
	case *statsMode:
		return runStats(ctx, st, *backend, *dir, *jsonOutput, stdout)
	case *clearMode:
		if err := st.ClearAll(ctx); err != nil {
			return err
		}
		if !*quiet {
			fmt.Fprintln(stderr, "Cache cleared")
		}
		return nil
	case *exportFile != "":
		return runExport(ctx, st, *exportFile, *backend, *quiet, stderr)
	default:
		return runImport(ctx, st, *importFile, *quiet, stderr)
	}
}

// openStore selects the durable tier once at startup.
func openStore(backend, dir, redisURL string, ttl time.Duration, prefix string) (lingocache.PersistentCache, func(), error) {
	switch backend {
	case "file":
		st, err := store.NewFileStore(store.FileConfig{Dir: dir, TTL: ttl})
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "redis":
		st, err := store.NewRedisStore(store.RedisConfig{URL: redisURL, TTL: ttl, KeyPrefix: prefix})
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (expected file or redis)", backend)
	}
}

func requireProjectLang(project, lang string) error {
	if strings.TrimSpace(project) == "" || strings.TrimSpace(lang) == "" {
		return fmt.Errorf("-project and -lang are required")
	}
	return nil
}

// runGet prints a cached payload, or a single group of it, as JSON.
func runGet(ctx context.Context, st lingocache.PersistentCache, project, lang, group string, stdout io.Writer) error {
	if err := requireProjectLang(project, lang); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if group != "" {
		g, ok, err := st.GetGroup(ctx, project, group, lang)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no cached group %q for %s/%s", group, project, lang)
		}
		return enc.Encode(g)
	}

	payload, ok, err := st.GetProject(ctx, project, lang)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("nothing cached for %s/%s", project, lang)
	}
	return enc.Encode(payload)
}

// runCheck reports cache presence without reading the payload.
func runCheck(ctx context.Context, st lingocache.PersistentCache, project, lang string, jsonOut bool, stdout io.Writer) error {
	if err := requireProjectLang(project, lang); err != nil {
		return err
	}

	cached, err := st.IsCached(ctx, project, lang)
	if err != nil {
		return err
	}

	if jsonOut {
		type checkOutput struct {
			Project string `json:"project"`
			Lang    string `json:"lang"`
			Cached  bool   `json:"cached"`
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(checkOutput{Project: project, Lang: lang, Cached: cached})
	}

	// Append the language name when it is a known locale
	var name string
	if n := lingocache.GetLanguageName(lang); n != lang {
		name = fmt.Sprintf(" (%s)", n)
	}

	if cached {
		fmt.Fprintf(stdout, "%s/%s is cached%s\n", project, lang, name)
	} else {
		fmt.Fprintf(stdout, "%s/%s is not cached%s\n", project, lang, name)
	}
	return nil
}

// runSave reads a payload JSON document and writes it to the durable tier.
func runSave(ctx context.Context, st lingocache.PersistentCache, path, project, lang string, quiet bool, stderr io.Writer) error {
	if err := requireProjectLang(project, lang); err != nil {
		return err
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return fmt.Errorf("reading payload file: %w", err)
		}
	}

	var payload lingocache.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	if err := st.SaveProject(ctx, project, lang, payload); err != nil {
		return err
	}

	if !quiet {
		entries := 0
		for _, g := range payload {
			entries += len(g)
		}
		fmt.Fprintf(stderr, "Cached %s/%s: %d groups, %s entries (%s)\n",
			project, lang, len(payload), humanize.Comma(int64(entries)), humanize.Bytes(uint64(len(data))))
	}
	return nil
}

// runDiff compares a payload file with the cached version and shows what
// changed. An uncached pair diffs against an empty payload, so everything
// reports as added.
func runDiff(ctx context.Context, st lingocache.PersistentCache, path, project, lang string, jsonOut bool, stdout io.Writer) error {
	if err := requireProjectLang(project, lang); err != nil {
		return err
	}

	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return fmt.Errorf("reading payload file: %w", err)
	}
	var next lingocache.Payload
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	current, ok, err := st.GetProject(ctx, project, lang)
	if err != nil {
		return err
	}
	if !ok {
		current = lingocache.Payload{}
	}

	diff := lingocache.DiffPayloads(current, next)
	stats := diff.Stats()

	if jsonOut {
		type diffOutput struct {
			Project   string `json:"project"`
			Lang      string `json:"lang"`
			Added     int    `json:"added"`
			Removed   int    `json:"removed"`
			Changed   int    `json:"changed"`
			Unchanged int    `json:"unchanged"`
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diffOutput{
			Project:   project,
			Lang:      lang,
			Added:     stats.Added,
			Removed:   stats.Removed,
			Changed:   stats.Changed,
			Unchanged: stats.Unchanged,
		})
	}

	if !diff.HasChanges() {
		fmt.Fprintf(stdout, "No changes for %s/%s\n", project, lang)
		return nil
	}

	fmt.Fprintf(stdout, "Changes for %s/%s:\n", project, lang)
	for _, e := range diff.Added {
		fmt.Fprintf(stdout, "  + %s/%s\n", e.Group, e.Entry)
	}
	for _, c := range diff.Changed {
		fmt.Fprintf(stdout, "  ~ %s/%s\n", c.Group, c.Entry)
	}
	for _, e := range diff.Removed {
		fmt.Fprintf(stdout, "  - %s/%s\n", e.Group, e.Entry)
	}
	fmt.Fprintf(stdout, "%d added, %d changed, %d removed, %d unchanged\n",
		stats.Added, stats.Changed, stats.Removed, stats.Unchanged)
	return nil
}

// runWarm preloads a memory tier from the durable one and reports what it
// found. Useful as a health probe: every miss is a pair the durable tier
// does not hold.
func runWarm(ctx context.Context, st lingocache.PersistentCache, projects, langs string, maxEntries int, logger *log.Logger, jsonOut bool, stdout io.Writer) error {
	projectList := splitList(projects)
	langList := splitList(langs)
	if len(projectList) == 0 || len(langList) == 0 {
		return fmt.Errorf("-warm requires -projects and -langs")
	}
	for i, l := range langList {
		langList[i] = lingocache.NormalizeLocale(l)
	}

	hybrid, err := lingocache.NewHybrid(st, lingocache.HybridConfig{
		Enabled:    true,
		MaxEntries: maxEntries,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if err := hybrid.Warmup(ctx, projectList, langList); err != nil {
		return err
	}

	stats := hybrid.Stats()
	pairs := len(projectList) * len(langList)

	if jsonOut {
		type warmOutput struct {
			Pairs      int   `json:"pairs"`
			Warmed     int64 `json:"warmed"`
			NotCached  int64 `json:"not_cached"`
			InMemory   int   `json:"in_memory"`
			MaxEntries int   `json:"max_entries"`
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(warmOutput{
			Pairs:      pairs,
			Warmed:     stats.Promotions,
			NotCached:  stats.Misses,
			InMemory:   stats.Entries,
			MaxEntries: stats.MaxEntries,
		})
	}

	fmt.Fprintf(stdout, "Warmed %s of %s project/language pairs\n",
		humanize.Comma(stats.Promotions), humanize.Comma(int64(pairs)))
	fmt.Fprintf(stdout, "  In memory:   %d (max %d)\n", stats.Entries, stats.MaxEntries)
	fmt.Fprintf(stdout, "  Not cached:  %s\n", humanize.Comma(stats.Misses))
	return nil
}

// runStats summarizes the durable tier: live pairs, distinct projects and
// languages, and for the file backend the size on disk.
func runStats(ctx context.Context, st lingocache.PersistentCache, backend, dir string, jsonOut bool, stdout io.Writer) error {
	entries, err := store.NewExporter(st).Entries(ctx)
	if err != nil {
		return err
	}

	projects := map[string]bool{}
	languages := map[string]bool{}
	for _, e := range entries {
		projects[e.Project] = true
		languages[e.Lang] = true
	}

	var diskSize int64
	if backend == "file" {
		diskSize = dirSize(dir)
	}

	if jsonOut {
		type statsOutput struct {
			Backend   string `json:"backend"`
			Pairs     int    `json:"pairs"`
			Projects  int    `json:"projects"`
			Languages int    `json:"languages"`
			DiskBytes int64  `json:"disk_bytes,omitempty"`
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{
			Backend:   backend,
			Pairs:     len(entries),
			Projects:  len(projects),
			Languages: len(languages),
			DiskBytes: diskSize,
		})
	}

	fmt.Fprintf(stdout, "Backend:    %s\n", backend)
	fmt.Fprintf(stdout, "Pairs:      %s\n", humanize.Comma(int64(len(entries))))
	fmt.Fprintf(stdout, "Projects:   %d\n", len(projects))
	fmt.Fprintf(stdout, "Languages:  %d\n", len(languages))
	if backend == "file" {
		fmt.Fprintf(stdout, "On disk:    %s\n", humanize.Bytes(uint64(diskSize)))
	}
	return nil
}

// dirSize sums the file sizes under root; unreadable entries count as zero.
func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// runExport dumps every live entry to a file.
func runExport(ctx context.Context, st lingocache.PersistentCache, path, backend string, quiet bool, stderr io.Writer) error {
	exporter := store.NewExporter(st)
	metadata := map[string]string{
		"backend": backend,
		"tool":    lingocache.UserAgent(),
	}
	if err := exporter.ExportToFile(ctx, path, metadata); err != nil {
		return err
	}

	if !quiet {
		if fi, err := os.Stat(path); err == nil {
			fmt.Fprintf(stderr, "Exported to %s (%s)\n", path, humanize.Bytes(uint64(fi.Size())))
		}
	}
	return nil
}

// runImport loads a previously exported file into the durable tier.
func runImport(ctx context.Context, st lingocache.PersistentCache, path string, quiet bool, stderr io.Writer) error {
	importer := store.NewImporter(st)
	result, err := importer.ImportFromFile(ctx, path)
	if err != nil {
		return err
	}

	if result.Failed > 0 {
		return fmt.Errorf("imported %d entries, %d failed", result.Imported, result.Failed)
	}
	if !quiet {
		fmt.Fprintf(stderr, "Imported %s entries from %s\n", humanize.Comma(int64(result.Imported)), path)
	}
	return nil
}

// splitList parses a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return "lingocache"
	}
	return filepath.Join(base, "lingocache")
}
