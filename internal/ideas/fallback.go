// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ideas

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pdiddy/article-engine/internal/artifact"
	"github.com/pdiddy/article-engine/pkg/types"
)

// collisionPrefixRunes is how much of a candidate slug must appear inside an
// existing slug for the two to count as near-duplicates.
const collisionPrefixRunes = 20

// Index holds the slugs of titles already taken. Collisions are a presence
// check on slugs, not a similarity measure.
type Index struct {
	slugs []string
	seen  map[string]bool
}

// NewIndex builds an Index over existing titles.
func NewIndex(titles []string) *Index {
	ix := &Index{seen: make(map[string]bool, len(titles))}
	for _, t := range titles {
		ix.Add(t)
	}
	return ix
}

// Add marks title as taken.
func (ix *Index) Add(title string) {
	s := artifact.Slug(title)
	if ix.seen[s] {
		return
	}
	ix.seen[s] = true
	ix.slugs = append(ix.slugs, s)
}

// Collides reports whether title's slug equals a taken slug or its first
// collisionPrefixRunes runes appear inside one.
func (ix *Index) Collides(title string) bool {
	s := artifact.Slug(title)
	if ix.seen[s] {
		return true
	}
	prefix := s
	if r := []rune(s); len(r) > collisionPrefixRunes {
		prefix = string(r[:collisionPrefixRunes])
	}
	for _, taken := range ix.slugs {
		if strings.Contains(taken, prefix) {
			return true
		}
	}
	return false
}

// Edition appends the year qualifier used when a title must be reused.
// n > 1 numbers repeated reuse within the same year.
func Edition(title string, year, n int) string {
	if n > 1 {
		return fmt.Sprintf("%s (%d Edition %d)", title, year, n)
	}
	return fmt.Sprintf("%s (%d Edition)", title, year)
}

// Fallback picks count topics from pool. The pool is shuffled with seed;
// entries colliding with existing titles are skipped, and once the fresh
// entries run out, shuffled entries are reused with an Edition suffix.
// It never fails: the result always has exactly count entries, or none when
// count <= 0 or the pool is empty.
func Fallback(pool []types.TopicDescriptor, count int, existing []string, seed int64, year int) []types.TopicDescriptor {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	d := newDrawer(pool, existing, seed, year)
	out := make([]types.TopicDescriptor, 0, count)
	for len(out) < count {
		out = append(out, d.next())
	}
	return out
}

// Dedupe reconciles model-proposed topics with the corpus: it truncates to
// count, replaces any topic that collides with an existing title or repeats
// an earlier title in the batch with a fresh pool entry (or, with none left,
// gives it an Edition suffix), and pads a short batch from the pool the way
// Fallback does. Within a batch only exact title repeats count; distinct
// titles that share a slug are told apart by their file identifiers.
func Dedupe(topics []types.TopicDescriptor, count int, existing []string, pool []types.TopicDescriptor, seed int64, year int) []types.TopicDescriptor {
	if count <= 0 {
		return nil
	}
	if len(topics) > count {
		topics = topics[:count]
	}
	d := newDrawer(pool, existing, seed, year)
	out := make([]types.TopicDescriptor, 0, count)
	for _, t := range topics {
		if !d.collides(t.Title) {
			d.batch[t.Title] = true
			out = append(out, t)
			continue
		}
		if fresh, ok := d.fresh(); ok {
			out = append(out, fresh)
			continue
		}
		t.Title = d.edition(t.Title)
		out = append(out, t)
	}
	for len(out) < count && len(pool) > 0 {
		out = append(out, d.next())
	}
	return out
}

// drawer hands out pool entries in shuffled order, fresh entries first.
type drawer struct {
	order    []types.TopicDescriptor
	existing *Index
	batch    map[string]bool
	year     int
	pos      int
	reused   int
	editions map[string]int
}

func newDrawer(pool []types.TopicDescriptor, existing []string, seed int64, year int) *drawer {
	rng := rand.New(rand.NewSource(seed))
	order := make([]types.TopicDescriptor, len(pool))
	for i, j := range rng.Perm(len(pool)) {
		order[i] = pool[j]
	}
	return &drawer{
		order:    order,
		existing: NewIndex(existing),
		batch:    make(map[string]bool),
		year:     year,
		editions: make(map[string]int),
	}
}

// collides reports whether title is near an existing corpus title or was
// already handed out in this batch.
func (d *drawer) collides(title string) bool {
	return d.batch[title] || d.existing.Collides(title)
}

// fresh returns the next pool entry that collides with nothing taken so far.
func (d *drawer) fresh() (types.TopicDescriptor, bool) {
	for d.pos < len(d.order) {
		t := d.order[d.pos]
		d.pos++
		if d.collides(t.Title) {
			continue
		}
		d.batch[t.Title] = true
		return cloneTopic(t), true
	}
	return types.TopicDescriptor{}, false
}

// next returns a fresh entry, or a reused entry with an Edition suffix once
// the fresh ones are gone. The pool must be non-empty.
func (d *drawer) next() types.TopicDescriptor {
	if t, ok := d.fresh(); ok {
		return t
	}
	t := cloneTopic(d.order[d.reused%len(d.order)])
	d.reused++
	t.Title = d.edition(t.Title)
	return t
}

// edition returns title with the smallest Edition suffix not yet handed out
// in this batch and not already persisted. Only exact slugs are checked
// against the corpus; the prefix rule would match every suffix.
func (d *drawer) edition(title string) string {
	for {
		d.editions[title]++
		out := Edition(title, d.year, d.editions[title])
		if !d.batch[out] && !d.existing.seen[artifact.Slug(out)] {
			d.batch[out] = true
			return out
		}
	}
}

func cloneTopic(t types.TopicDescriptor) types.TopicDescriptor {
	t.Tags = append([]string(nil), t.Tags...)
	return t
}
