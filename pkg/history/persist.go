package history

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion tags the serialized history format. A blob with any
// other version is discarded and the session starts from an empty
// history rather than guessing at field layouts.
const snapshotVersion = 1

// Store is the persistent storage collaborator. The blob handed over
// is already serialized; encryption is the store's concern.
type Store interface {
	// Load returns the last saved blob. Implementations report a
	// missing blob with an error; any Load error degrades to an empty
	// history, never a startup failure.
	Load() ([]byte, error)
	Save(blob []byte) error
}

type snapshot struct {
	Version uint32          `msgpack:"v"`
	SavedAt int64           `msgpack:"t"`
	Entries []snapshotEntry `msgpack:"e"`
}

type snapshotEntry struct {
	Key       string `msgpack:"k"`
	Value     string `msgpack:"w"`
	LastUsed  int64  `msgpack:"u"`
	UseCount  uint32 `msgpack:"c"`
	Kind      uint8  `msgpack:"y"`
	Sensitive bool   `msgpack:"s,omitempty"`
	Fresh     bool   `msgpack:"f,omitempty"`
}

// Load restores the history from storage. Every failure mode (missing
// blob, bad ciphertext, version mismatch, truncated msgpack) lands on
// the same path: log and continue with an empty cache.
func (h *History) Load() {
	if h.store == nil {
		return
	}
	blob, err := h.store.Load()
	if err != nil {
		h.log.Warnf("history load failed, starting empty: %v", err)
		return
	}

	var snap snapshot
	if err := msgpack.Unmarshal(blob, &snap); err != nil {
		h.log.Warnf("history blob undecodable, starting empty: %v", err)
		return
	}
	if snap.Version != snapshotVersion {
		h.log.Warnf("history blob version %d, want %d; starting empty", snap.Version, snapshotVersion)
		return
	}

	h.mu.Lock()
	// Entries were saved most recent first; inserting in reverse
	// rebuilds the same recency order.
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		se := snap.Entries[i]
		h.cache.Put(Entry{
			Key:       se.Key,
			Value:     se.Value,
			LastUsed:  se.LastUsed,
			UseCount:  se.UseCount,
			Kind:      EntryKind(se.Kind),
			Sensitive: se.Sensitive,
			Fresh:     se.Fresh,
		})
	}
	n := h.cache.Len()
	h.mu.Unlock()
	h.log.Debugf("restored %d history entries", n)
}

// Save serializes a point-in-time snapshot and hands it to storage.
// The copy happens under the lock; marshalling and I/O do not.
func (h *History) Save() error {
	if h.store == nil {
		return nil
	}
	h.mu.RLock()
	entries := h.cache.Snapshot()
	h.mu.RUnlock()

	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: h.nowFn().Unix(),
		Entries: make([]snapshotEntry, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, snapshotEntry{
			Key:       e.Key,
			Value:     e.Value,
			LastUsed:  e.LastUsed,
			UseCount:  e.UseCount,
			Kind:      uint8(e.Kind),
			Sensitive: e.Sensitive,
			Fresh:     e.Fresh,
		})
	}

	blob, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode history snapshot: %w", err)
	}
	if err := h.store.Save(blob); err != nil {
		return fmt.Errorf("save history snapshot: %w", err)
	}
	h.dirty.Store(false)
	return nil
}

// PersistNow asks the background saver for an immediate save. It never
// blocks; if a save is already queued the trigger coalesces into it.
func (h *History) PersistNow() {
	select {
	case h.saveCh <- struct{}{}:
	default:
	}
}

// StartAutoSave runs the background persistence task. Saves happen on
// the given interval when there are unsaved changes, and immediately
// after a PersistNow trigger.
func (h *History) StartAutoSave(interval time.Duration) {
	if h.store == nil || interval <= 0 {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if h.dirty.Load() {
					h.saveAndLog()
				}
			case <-h.saveCh:
				h.saveAndLog()
			case <-h.done:
				return
			}
		}
	}()
}

// Stop shuts down the background saver and flushes unsaved state.
func (h *History) Stop() {
	close(h.done)
	h.wg.Wait()
	if h.dirty.Load() {
		h.saveAndLog()
	}
}

func (h *History) saveAndLog() {
	if err := h.Save(); err != nil {
		h.log.Errorf("background save: %v", err)
	}
}

func (h *History) markDirty() {
	h.dirty.Store(true)
}
