// Package lingocache provides a multi-tier cache for translation payloads.
package lingocache

// Group maps entry names to translated strings for a single translation
// group (e.g. "checkout" -> {"title": "Kasse", "submit": "Bezahlen"}).
type Group map[string]string

// Payload is the full translation payload for one (project, language)
// pair: translation groups keyed by group name. The cache stores payloads
// as opaque values; callers must not mutate a payload returned by a Get.
type Payload map[string]Group

// Stats is a point-in-time snapshot of hybrid cache activity.
type Stats struct {
	Entries    int   // current memory-tier population
	MaxEntries int   // configured memory-tier bound
	L1Hits     int64 // served from the memory tier
	L2Hits     int64 // served from the durable tier
	Misses     int64 // absent from both tiers
	Promotions int64 // durable-tier hits copied into the memory tier
	Evictions  int64 // memory-tier entries displaced by the bound
}
