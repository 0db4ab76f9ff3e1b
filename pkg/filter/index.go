package filter

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Index maps lowercased city names to dataset positions in a patricia trie, so a
// full-dataset prefix scan only visits the matching subtree.
type Index struct {
	trie *patricia.Trie
	keys int
}

// NewIndex builds the trie for ds. Records with an empty city are not indexed.
func NewIndex(ds Dataset) *Index {
	ix := &Index{trie: patricia.NewTrie()}
	for i, r := range ds {
		if r.City == "" {
			continue
		}
		key := patricia.Prefix(strings.ToLower(r.City))
		if item := ix.trie.Get(key); item != nil {
			ix.trie.Set(key, append(item.([]int), i))
			continue
		}
		ix.trie.Insert(key, []int{i})
		ix.keys++
	}
	log.Debugf("Indexed %d records under %d distinct city names", len(ds), ix.keys)
	return ix
}

// Keys returns the number of distinct lowercased city names.
func (ix *Index) Keys() int { return ix.keys }

// Prefix returns the sorted positions of every city starting with lowerPrefix.
// lowerPrefix must be non-empty.
func (ix *Index) Prefix(lowerPrefix string) []int {
	var positions []int
	err := ix.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(_ patricia.Prefix, item patricia.Item) error {
		if item == nil {
			return nil
		}
		positions = append(positions, item.([]int)...)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting city index subtree: %v", err)
		return nil
	}
	sort.Ints(positions)
	return positions
}

// Exact returns the positions of every city equal to lowerCity.
func (ix *Index) Exact(lowerCity string) []int {
	item := ix.trie.Get(patricia.Prefix(lowerCity))
	if item == nil {
		return nil
	}
	src := item.([]int)
	positions := make([]int, len(src))
	copy(positions, src)
	return positions
}
