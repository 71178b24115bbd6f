package history

import (
	"container/list"

	"github.com/cespare/xxhash/v2"
	"github.com/tchap/go-patricia/v2/patricia"
)

// EntryKind tells what a learned entry represents.
type EntryKind uint8

const (
	// KindNormal is a committed (reading, surface) pair.
	KindNormal EntryKind = iota
	// KindBigram links a committed surface form to the surface form
	// that followed it, keyed by the previous value.
	KindBigram
	// KindSingleKanji is a single-character commit.
	KindSingleKanji
)

// Entry is one learned unit. Entries are owned exclusively by the
// cache; callers get copies.
type Entry struct {
	Key       string
	Value     string
	LastUsed  int64 // unix seconds
	UseCount  uint32
	Kind      EntryKind
	Sensitive bool
	Fresh     bool
}

// Fingerprint identifies a (key, value) pair inside the cache and trie.
func Fingerprint(key, value string) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(key)
	_, _ = d.WriteString("\x1f")
	_, _ = d.WriteString(value)
	return d.Sum64()
}

type cacheNode struct {
	fp    uint64
	entry Entry
}

// learnCache is the bounded recency-ordered store plus the prefix trie
// that indexes it. The two structures always mutate together inside the
// same method, so a trie bucket can never reference an evicted entry.
// learnCache itself is not safe for concurrent use; History serializes
// access behind its mutex.
type learnCache struct {
	capacity int
	nodes    map[uint64]*list.Element
	order    *list.List // front = most recently used
	trie     *patricia.Trie
}

func newLearnCache(capacity int) *learnCache {
	if capacity < 1 {
		capacity = 1
	}
	return &learnCache{
		capacity: capacity,
		nodes:    make(map[uint64]*list.Element, capacity),
		order:    list.New(),
		trie:     patricia.NewTrie(),
	}
}

func (c *learnCache) Len() int {
	return len(c.nodes)
}

// Put inserts or reinforces an entry and returns its fingerprint.
// Identical (key, value) pairs update stats instead of duplicating.
// Insertion past capacity evicts the least recently used entry first.
func (c *learnCache) Put(e Entry) uint64 {
	fp := Fingerprint(e.Key, e.Value)
	if elem, ok := c.nodes[fp]; ok {
		node := elem.Value.(*cacheNode)
		node.entry.UseCount++
		if e.LastUsed > node.entry.LastUsed {
			node.entry.LastUsed = e.LastUsed
		}
		node.entry.Fresh = e.Fresh || node.entry.Fresh
		c.order.MoveToFront(elem)
		return fp
	}

	if len(c.nodes) >= c.capacity {
		c.evict()
	}
	if e.UseCount == 0 {
		e.UseCount = 1
	}
	elem := c.order.PushFront(&cacheNode{fp: fp, entry: e})
	c.nodes[fp] = elem
	c.trieAdd(e.Key, fp)
	return fp
}

// Get returns a copy of the entry and refreshes its recency.
func (c *learnCache) Get(fp uint64) (Entry, bool) {
	elem, ok := c.nodes[fp]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheNode).entry, true
}

// Peek returns a copy without touching recency. Persistence snapshots
// use this so a background save does not reorder the cache.
func (c *learnCache) Peek(fp uint64) (Entry, bool) {
	elem, ok := c.nodes[fp]
	if !ok {
		return Entry{}, false
	}
	return elem.Value.(*cacheNode).entry, true
}

// Touch refreshes the recency of an entry that was surfaced to the
// user.
func (c *learnCache) Touch(fp uint64, now int64) {
	elem, ok := c.nodes[fp]
	if !ok {
		return
	}
	node := elem.Value.(*cacheNode)
	node.entry.LastUsed = now
	c.order.MoveToFront(elem)
}

// Evict removes and returns the least recently used entry.
func (c *learnCache) Evict() (Entry, bool) {
	return c.evict()
}

func (c *learnCache) evict() (Entry, bool) {
	elem := c.order.Back()
	if elem == nil {
		return Entry{}, false
	}
	node := elem.Value.(*cacheNode)
	c.order.Remove(elem)
	delete(c.nodes, node.fp)
	c.trieRemove(node.entry.Key, node.fp)
	return node.entry, true
}

// Remove drops a specific entry from the cache and the trie.
func (c *learnCache) Remove(fp uint64) bool {
	elem, ok := c.nodes[fp]
	if !ok {
		return false
	}
	node := elem.Value.(*cacheNode)
	c.order.Remove(elem)
	delete(c.nodes, fp)
	c.trieRemove(node.entry.Key, node.fp)
	return true
}

// Clear drops everything.
func (c *learnCache) Clear() {
	c.nodes = make(map[uint64]*list.Element, c.capacity)
	c.order.Init()
	c.trie = patricia.NewTrie()
}

// VisitPrefix calls visit for every entry whose key starts with prefix.
// Returning false from visit stops the walk. Only exact byte prefixes
// match; case variants are distinct keys.
func (c *learnCache) VisitPrefix(prefix string, visit func(fp uint64, e Entry) bool) {
	stopped := false
	_ = c.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if stopped {
			return nil
		}
		for fp := range item.(map[uint64]struct{}) {
			elem, ok := c.nodes[fp]
			if !ok {
				// ruled out by construction; trie and cache mutate together
				continue
			}
			if !visit(fp, elem.Value.(*cacheNode).entry) {
				stopped = true
				return nil
			}
		}
		return nil
	})
}

// VisitExact calls visit for every entry stored under exactly key.
func (c *learnCache) VisitExact(key string, visit func(fp uint64, e Entry) bool) {
	item := c.trie.Get(patricia.Prefix(key))
	if item == nil {
		return
	}
	for fp := range item.(map[uint64]struct{}) {
		elem, ok := c.nodes[fp]
		if !ok {
			continue
		}
		if !visit(fp, elem.Value.(*cacheNode).entry) {
			return
		}
	}
}

// Snapshot copies every entry in recency order, most recent first.
func (c *learnCache) Snapshot() []Entry {
	out := make([]Entry, 0, len(c.nodes))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*cacheNode).entry)
	}
	return out
}

func (c *learnCache) trieAdd(key string, fp uint64) {
	prefix := patricia.Prefix(key)
	if item := c.trie.Get(prefix); item != nil {
		item.(map[uint64]struct{})[fp] = struct{}{}
		return
	}
	c.trie.Set(prefix, map[uint64]struct{}{fp: {}})
}

func (c *learnCache) trieRemove(key string, fp uint64) {
	prefix := patricia.Prefix(key)
	item := c.trie.Get(prefix)
	if item == nil {
		return
	}
	set := item.(map[uint64]struct{})
	delete(set, fp)
	if len(set) == 0 {
		c.trie.Delete(prefix)
	}
}
