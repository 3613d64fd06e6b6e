package lingocache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Warmup preloads the memory tier with every (project, language)
// combination of the given slices, fetching from the durable tier
// concurrently. HybridConfig.WarmupConcurrency bounds the fan-out when
// set. A pair that is absent stays absent and a pair that fails to load
// is logged and skipped; one bad pair never aborts the batch. Warmup
// returns after every pair has settled.
func (h *HybridCache) Warmup(ctx context.Context, projects, languages []string) error {
	if err := h.opStart(ctx, "warmup"); err != nil {
		return err
	}

	var g errgroup.Group
	if h.warmupLimit > 0 {
		g.SetLimit(h.warmupLimit)
	}

	for _, project := range projects {
		for _, lang := range languages {
			g.Go(func() error {
				if _, _, err := h.GetProject(ctx, project, lang); err != nil {
					h.logger.Warn("cache warmup fetch failed",
						"project", project,
						"lang", lang,
						"err", err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}
