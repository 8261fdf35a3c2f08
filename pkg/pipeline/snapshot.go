package pipeline

import (
	"context"
	"strings"
)

// SnapshotTrigger turns first-seen events into automatic snapshot requests:
// exactly one per word, ever. Manual snapshot requests bypass it entirely.
type SnapshotTrigger struct {
	bus    *Bus
	events <-chan Event
	seen   map[string]struct{}
}

// NewSnapshotTrigger subscribes to bus. Run must be started before the
// pipeline begins publishing.
func NewSnapshotTrigger(bus *Bus) *SnapshotTrigger {
	return &SnapshotTrigger{
		bus:    bus,
		events: bus.Subscribe(),
		seen:   make(map[string]struct{}),
	}
}

// Run consumes the event stream until ctx is done or the bus closes.
func (t *SnapshotTrigger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-t.events:
			if !ok {
				return
			}
			fs, isFirstSeen := e.(WordFirstSeen)
			if !isFirstSeen {
				continue
			}
			key := strings.ToLower(fs.Word)
			if _, dup := t.seen[key]; dup {
				continue
			}
			t.seen[key] = struct{}{}
			t.bus.Publish(SnapshotRequest{Word: fs.Word, Auto: true})
		}
	}
}
