package lingocache

import "strings"

// Key prefixes, one per key shape. Distinct prefixes keep keys of
// different shapes from ever colliding, whatever the segment values.
const (
	prefixEntry          = "entry"
	prefixGroup          = "group"
	prefixProject        = "project"
	prefixGroupLocales   = "group-locales"
	prefixProjectLocales = "project-locales"
)

const keySeparator = ":"

// BuildEntryKey returns the cache key for a single translation entry in a
// group and language.
func BuildEntryKey(group, entry, lang string) (string, error) {
	if err := requireSegments("group", group, "entry", entry, "lang", lang); err != nil {
		return "", err
	}
	return joinKey(prefixEntry, group, entry, lang), nil
}

// BuildGroupKey returns the cache key for a whole translation group of a
// project in a language.
func BuildGroupKey(project, group, lang string) (string, error) {
	if err := requireSegments("project", project, "group", group, "lang", lang); err != nil {
		return "", err
	}
	return joinKey(prefixGroup, project, group, lang), nil
}

// BuildProjectKey returns the cache key for a project's full payload in a
// language.
func BuildProjectKey(project, lang string) (string, error) {
	if err := requireSegments("project", project, "lang", lang); err != nil {
		return "", err
	}
	return joinKey(prefixProject, project, lang), nil
}

// BuildGroupLocalesKey returns the cache key for the list of locales
// available for a project's group.
func BuildGroupLocalesKey(project, group string) (string, error) {
	if err := requireSegments("project", project, "group", group); err != nil {
		return "", err
	}
	return joinKey(prefixGroupLocales, project, group), nil
}

// BuildProjectLocalesKey returns the cache key for the list of locales
// available for a project.
func BuildProjectLocalesKey(project string) (string, error) {
	if err := requireSegments("project", project); err != nil {
		return "", err
	}
	return joinKey(prefixProjectLocales, project), nil
}

// requireSegments validates name/value pairs, rejecting any value that is
// empty after trimming.
func requireSegments(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &InvalidArgumentError{Param: pairs[i]}
		}
	}
	return nil
}

func joinKey(segments ...string) string {
	return strings.Join(segments, keySeparator)
}
