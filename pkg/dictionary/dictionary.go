// Package dictionary provides read-only prefix lookup over the static
// system dictionary plus the single-kanji table. Both are loaded once
// at startup and never mutated afterwards, so lookups need no locking.
package dictionary

import (
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"
)

// Token is one dictionary entry: a reading, its surface form, a
// part-of-speech tag and a lattice cost (lower is better).
type Token struct {
	Key   string
	Value string
	POS   string
	Cost  int
}

// Dictionary indexes tokens by reading in a Patricia trie.
type Dictionary struct {
	trie        *patricia.Trie
	singleKanji map[string][]string
	tokenCount  int
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{
		trie:        patricia.NewTrie(),
		singleKanji: make(map[string][]string),
	}
}

// AddToken indexes one token under its reading.
func (d *Dictionary) AddToken(t Token) {
	if t.Key == "" || t.Value == "" {
		return
	}
	prefix := patricia.Prefix(t.Key)
	if item := d.trie.Get(prefix); item != nil {
		d.trie.Set(prefix, append(item.([]Token), t))
	} else {
		d.trie.Set(prefix, []Token{t})
	}
	d.tokenCount++
}

// AddSingleKanji registers candidate characters for a one-character
// reading.
func (d *Dictionary) AddSingleKanji(reading string, kanji ...string) {
	if reading == "" || len(kanji) == 0 {
		return
	}
	d.singleKanji[reading] = append(d.singleKanji[reading], kanji...)
}

// Len returns the number of indexed tokens.
func (d *Dictionary) Len() int {
	return d.tokenCount
}

// LookupPrefix returns tokens whose reading starts with key, cheapest
// first, capped at limit. Only exact byte prefixes match.
func (d *Dictionary) LookupPrefix(key string, limit int) []Token {
	if key == "" || limit < 1 {
		return nil
	}
	var out []Token
	_ = d.trie.VisitSubtree(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
		out = append(out, item.([]Token)...)
		return nil
	})
	sortTokens(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LookupExact returns tokens stored under exactly key, cheapest first.
func (d *Dictionary) LookupExact(key string) []Token {
	item := d.trie.Get(patricia.Prefix(key))
	if item == nil {
		return nil
	}
	tokens := item.([]Token)
	out := make([]Token, len(tokens))
	copy(out, tokens)
	sortTokens(out)
	return out
}

func sortTokens(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Cost != tokens[j].Cost {
			return tokens[i].Cost < tokens[j].Cost
		}
		if tokens[i].Key != tokens[j].Key {
			return tokens[i].Key < tokens[j].Key
		}
		return tokens[i].Value < tokens[j].Value
	})
}

// SingleKanji returns the single-character candidates for a reading.
func (d *Dictionary) SingleKanji(reading string) []string {
	return d.singleKanji[reading]
}
