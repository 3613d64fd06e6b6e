// Package store provides the durable tiers of the translation payload
// cache: a filesystem tree of payload/manifest pairs and a Redis-backed
// variant holding one blob per (project, language) pair. Both satisfy
// lingocache.PersistentCache and are interchangeable behind HybridCache.
package store

import (
	"context"
	"strings"

	"github.com/LingoraLabs/lingocache"
)

// PersistentCache is the durable-tier contract. This is a type alias for
// convenience when working with the store package directly.
type PersistentCache = lingocache.PersistentCache

// opStart enforces the cooperative cancellation contract: a context that
// is already done fails the operation before any I/O happens.
func opStart(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &lingocache.CancelledError{Op: op, Cause: err}
	}
	return nil
}

func requirePair(project, lang string) error {
	if strings.TrimSpace(project) == "" {
		return &lingocache.InvalidArgumentError{Param: "project"}
	}
	if strings.TrimSpace(lang) == "" {
		return &lingocache.InvalidArgumentError{Param: "lang"}
	}
	return nil
}

func requireGroup(group string) error {
	if strings.TrimSpace(group) == "" {
		return &lingocache.InvalidArgumentError{Param: "group"}
	}
	return nil
}
