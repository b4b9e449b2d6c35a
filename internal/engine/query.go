package engine

import (
	"context"

	"github.com/engramdb/engram/internal/store"
)

// Latest returns the most recently ingested event for (uid, scopeID),
// or nil when the owner has no events there.
func (e *Engine) Latest(ctx context.Context, uid, scopeID string) (*store.Event, error) {
	ev, err := store.LatestEvent(ctx, e.store.DB(), uid, scopeID)
	if err != nil {
		return nil, storageErr("query latest", err)
	}
	return ev, nil
}

// Metric returns metrics for (uid, scopeID) by exact key and/or key
// prefix. At least one selector is required.
func (e *Engine) Metric(ctx context.Context, uid, scopeID, key, prefix string) ([]store.Metric, error) {
	if key == "" && prefix == "" {
		return nil, validationErr("metric query requires a key or a prefix")
	}

	var out []store.Metric
	if key != "" {
		m, err := store.MetricByKey(ctx, e.store.DB(), scopeID, uid, key)
		if err != nil {
			return nil, storageErr("query metric", err)
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	if prefix != "" {
		ms, err := store.MetricsByPrefix(ctx, e.store.DB(), scopeID, uid, prefix)
		if err != nil {
			return nil, storageErr("query metric", err)
		}
		out = append(out, ms...)
	}
	return out, nil
}

// TopK returns the materialized ranking for (uid, scopeID, topic),
// rank ascending. The result is bounded by min(limit, 10) since the
// projection itself never holds more than ten rows.
func (e *Engine) TopK(ctx context.Context, uid, scopeID, topic string, limit int) ([]store.TopKRow, error) {
	if limit <= 0 || limit > topKLimit {
		limit = topKLimit
	}
	rows, err := store.QueryTopK(ctx, e.store.DB(), scopeID, uid, topic, limit)
	if err != nil {
		return nil, storageErr("query topk", err)
	}
	return rows, nil
}
