package hassio

// snapshotCache maps a slug to the raw info last fetched for it. Entries live
// until invalidated; there is no expiry and no size bound. It is not
// synchronized: callers sharing a Gateway must serialize Snapshot and Delete.
type snapshotCache struct {
	entries map[string]map[string]any
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{entries: make(map[string]map[string]any)}
}

func (c *snapshotCache) get(slug string) (map[string]any, bool) {
	info, ok := c.entries[slug]
	return info, ok
}

func (c *snapshotCache) put(slug string, info map[string]any) {
	c.entries[slug] = info
}

func (c *snapshotCache) invalidate(slug string) {
	delete(c.entries, slug)
}
