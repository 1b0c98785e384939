package allocator

import (
	"sort"

	"github.com/okian/teamalloc/internal/domain/model"
)

// pool holds units still waiting for placement, ordered by score desc and
// then by input position so equal scores keep their resolution order.
type pool struct {
	items []*model.Unit
}

func newPool(units []*model.Unit) *pool {
	items := make([]*model.Unit, len(units))
	copy(items, units)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return &pool{items: items}
}

func (p *pool) len() int { return len(p.items) }

// pop removes and returns the highest-priority unit.
func (p *pool) pop() *model.Unit {
	u := p.items[0]
	p.items = p.items[1:]
	return u
}

// find returns the index of the first unit at or after from that matches,
// or -1.
func (p *pool) find(from int, match func(*model.Unit) bool) int {
	for i := from; i < len(p.items); i++ {
		if match(p.items[i]) {
			return i
		}
	}
	return -1
}

func (p *pool) at(i int) *model.Unit { return p.items[i] }

// take removes the units at the given indexes, which must be distinct.
// Relative order of the remaining units is preserved.
func (p *pool) take(idx ...int) []*model.Unit {
	out := make([]*model.Unit, len(idx))
	drop := make(map[int]struct{}, len(idx))
	for k, i := range idx {
		out[k] = p.items[i]
		drop[i] = struct{}{}
	}
	kept := p.items[:0]
	for i, u := range p.items {
		if _, ok := drop[i]; !ok {
			kept = append(kept, u)
		}
	}
	p.items = kept
	return out
}
