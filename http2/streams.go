package http2

import (
	slog "github.com/vearne/simplelog"
)

const (
	// StreamIDRoot is the connection-level stream.
	StreamIDRoot uint32 = 0
	// StreamIDMax is the highest 31-bit stream identifier.
	StreamIDMax uint32 = 1<<31 - 1
)

type streamEntry struct {
	id     uint32
	active bool
}

// streamCache remembers which streams the codec has seen, bounded by a
// fixed capacity. The root and max streams are sentinels that always
// exist and are never evicted. Frames for closed streams can still be
// parsed as long as their entry has not been evicted.
type streamCache struct {
	max     int
	streams map[uint32]*streamEntry
	// highest id ever evicted; ids at or below it that are missing
	// from the map were forgotten, not merely unseen
	highestEvicted uint32
	evictedAny     bool
}

func newStreamCache(max int) *streamCache {
	if max < 3 {
		max = 3
	}
	var c streamCache
	c.max = max
	c.streams = make(map[uint32]*streamEntry, 16)
	c.streams[StreamIDRoot] = &streamEntry{id: StreamIDRoot, active: true}
	c.streams[StreamIDMax] = &streamEntry{id: StreamIDMax, active: true}
	return &c
}

// touch looks up or creates the entry for id. The second result is true
// when id belongs to a stream that was evicted earlier.
func (c *streamCache) touch(id uint32) (*streamEntry, bool) {
	if e, ok := c.streams[id]; ok {
		return e, false
	}
	wasEvicted := c.evictedAny && id <= c.highestEvicted
	if len(c.streams) >= c.max {
		c.evictOne()
	}
	e := &streamEntry{id: id, active: true}
	c.streams[id] = e
	return e, wasEvicted
}

// evictOne removes the lowest-numbered inactive stream, or the
// lowest-numbered stream at all when everything is still active.
func (c *streamCache) evictOne() {
	var victim uint32
	found := false
	for id, e := range c.streams {
		if id == StreamIDRoot || id == StreamIDMax || e.active {
			continue
		}
		if !found || id < victim {
			victim = id
			found = true
		}
	}
	if !found {
		for id := range c.streams {
			if id == StreamIDRoot || id == StreamIDMax {
				continue
			}
			if !found || id < victim {
				victim = id
				found = true
			}
		}
	}
	if !found {
		return
	}
	delete(c.streams, victim)
	if !c.evictedAny || victim > c.highestEvicted {
		c.highestEvicted = victim
	}
	c.evictedAny = true
	slog.Debug("stream cache evict, streamID:%v", victim)
}

func (c *streamCache) markClosed(id uint32) {
	if id == StreamIDRoot || id == StreamIDMax {
		return
	}
	if e, ok := c.streams[id]; ok {
		e.active = false
	}
}

func (c *streamCache) size() int {
	return len(c.streams)
}

func (c *streamCache) contains(id uint32) bool {
	_, ok := c.streams[id]
	return ok
}
