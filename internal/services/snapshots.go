package services

import (
	"finplan/internal/cache"
	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/session"
)

// SnapshotCache keys insights snapshots by user and month.
type SnapshotCache struct {
	c cache.Cache[insights.Snapshot]
}

// NewSnapshotCache wraps c; a nil c disables caching.
func NewSnapshotCache(c cache.Cache[insights.Snapshot]) *SnapshotCache {
	return &SnapshotCache{c: c}
}

func snapshotKey(user session.Identity, month core.Month) string {
	return string(user) + "|" + string(month)
}

func (s *SnapshotCache) Get(user session.Identity, month core.Month) (insights.Snapshot, bool) {
	if s == nil || s.c == nil {
		return insights.Snapshot{}, false
	}
	return s.c.Get(snapshotKey(user, month))
}

func (s *SnapshotCache) Put(user session.Identity, month core.Month, snap insights.Snapshot) {
	if s == nil || s.c == nil {
		return
	}
	s.c.Set(snapshotKey(user, month), snap)
}

// Invalidate drops every month of user. Any mutation can move the trend of all
// twelve months, so there is no finer-grained invalidation.
func (s *SnapshotCache) Invalidate(user session.Identity) {
	if s == nil || s.c == nil {
		return
	}
	for _, m := range core.Months() {
		s.c.Delete(snapshotKey(user, m))
	}
}

// Size reports the number of cached snapshots.
func (s *SnapshotCache) Size() int {
	if s == nil || s.c == nil {
		return 0
	}
	return s.c.Size()
}
