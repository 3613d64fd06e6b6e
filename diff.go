package lingocache

import "sort"

// EntryRef addresses one translation entry inside a payload.
type EntryRef struct {
	Group string
	Entry string
	Text  string
}

// ChangedEntry is an entry present in both payload versions with
// different text.
type ChangedEntry struct {
	Group string
	Entry string
	Old   string
	New   string
}

// DiffResult represents the difference between two payload versions.
type DiffResult struct {
	// Added contains entries that are new (not in the previous payload).
	Added []EntryRef

	// Removed contains entries that no longer exist in the new payload.
	Removed []EntryRef

	// Changed contains entries whose translation text changed.
	Changed []ChangedEntry

	// Unchanged contains entries identical in both payloads.
	Unchanged []EntryRef
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Changed:   len(d.Changed),
		Unchanged: len(d.Unchanged),
	}
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Changed   int
	Unchanged int
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// NeedsTranslation returns the entries whose translations must be produced
// for the new payload: new entries plus changed ones.
func (d *DiffResult) NeedsTranslation() []EntryRef {
	result := make([]EntryRef, 0, len(d.Added)+len(d.Changed))
	result = append(result, d.Added...)
	for _, c := range d.Changed {
		result = append(result, EntryRef{Group: c.Group, Entry: c.Entry, Text: c.New})
	}
	return result
}

// DiffPayloads compares two payload versions entry by entry. Results are
// ordered by group then entry, so repeated diffs of the same inputs are
// identical. Useful for incremental updates: only what changed needs to
// be retranslated and recached.
func DiffPayloads(oldPayload, newPayload Payload) *DiffResult {
	result := &DiffResult{}

	for _, group := range sortedGroups(oldPayload) {
		oldGroup := oldPayload[group]
		newGroup := newPayload[group]
		for _, entry := range sortedEntries(oldGroup) {
			oldText := oldGroup[entry]
			newText, exists := newGroup[entry]
			switch {
			case !exists:
				result.Removed = append(result.Removed, EntryRef{Group: group, Entry: entry, Text: oldText})
			case newText != oldText:
				result.Changed = append(result.Changed, ChangedEntry{Group: group, Entry: entry, Old: oldText, New: newText})
			default:
				result.Unchanged = append(result.Unchanged, EntryRef{Group: group, Entry: entry, Text: oldText})
			}
		}
	}

	for _, group := range sortedGroups(newPayload) {
		oldGroup := oldPayload[group]
		newGroup := newPayload[group]
		for _, entry := range sortedEntries(newGroup) {
			if _, exists := oldGroup[entry]; !exists {
				result.Added = append(result.Added, EntryRef{Group: group, Entry: entry, Text: newGroup[entry]})
			}
		}
	}

	return result
}

func sortedGroups(p Payload) []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedEntries(g Group) []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
