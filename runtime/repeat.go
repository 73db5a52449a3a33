package runtime

// RepeatDict maps loop-variable names to their live loop metadata. It lives
// in the dynamic context under "repeat" so templates can read, for example,
// repeat.item.index while looping over item.
type RepeatDict map[string]*RepeatItem

// RepeatItem exposes metadata for one loop variable.
type RepeatItem struct {
	length int
	pos    int
}

// Index is the zero-based position of the current item.
func (r *RepeatItem) Index() int { return r.pos }

// Number is the one-based position of the current item.
func (r *RepeatItem) Number() int { return r.pos + 1 }

// Even reports whether the zero-based position is even.
func (r *RepeatItem) Even() bool { return r.pos%2 == 0 }

// Odd reports whether the zero-based position is odd.
func (r *RepeatItem) Odd() bool { return r.pos%2 == 1 }

// Start reports whether the current item is the first.
func (r *RepeatItem) Start() bool { return r.pos == 0 }

// End reports whether the current item is the last.
func (r *RepeatItem) End() bool { return r.pos == r.length-1 }

// Length is the total number of items.
func (r *RepeatItem) Length() int { return r.length }

// RepeatIter yields successive items of a wrapped iterable, advancing the
// registered metadata as it goes.
type RepeatIter struct {
	items []any
	meta  []*RepeatItem
}

// Len returns the total number of items.
func (it *RepeatIter) Len() int {
	return len(it.items)
}

// At positions the metadata at index i and returns the item.
func (it *RepeatIter) At(i int) any {
	for _, m := range it.meta {
		m.pos = i
	}
	return it.items[i]
}
