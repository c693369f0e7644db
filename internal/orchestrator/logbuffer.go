package orchestrator

import (
	"sync"

	"scrapeforge/pkg/models"
)

const maxLogEntries = 1000

// logBuffer is a per-job, capacity-bounded log ring: newest entries always
// win over the oldest once the buffer is full. Every entry is assigned a
// monotonically increasing index so Page can serve a since_index-based poll
// even after older entries have been dropped.
type logBuffer struct {
	mu      sync.Mutex
	entries []indexedEntry
	next    int
}

type indexedEntry struct {
	idx   int
	entry models.LogEntry
}

func newLogBuffer() *logBuffer {
	return &logBuffer{}
}

func (b *logBuffer) Append(entry models.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, indexedEntry{idx: b.next, entry: entry})
	b.next++
	if len(b.entries) > maxLogEntries {
		b.entries = b.entries[len(b.entries)-maxLogEntries:]
	}
}

// Page returns every entry with index >= sinceIndex (optionally filtered by
// level), plus a current index suitable as the next poll's sinceIndex.
func (b *logBuffer) Page(sinceIndex int, level *models.LogLevel) models.LogPage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.LogEntry, 0, len(b.entries))
	for _, ie := range b.entries {
		if ie.idx < sinceIndex {
			continue
		}
		if level != nil && ie.entry.Level != *level {
			continue
		}
		out = append(out, ie.entry)
	}

	return models.LogPage{
		Logs:         out,
		TotalCount:   b.next,
		CurrentIndex: b.next,
	}
}
