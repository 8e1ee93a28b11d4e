package usecase

import (
	"sync/atomic"

	"pgmirror/workers/resolver/internal/domain/listing"
)

// IndexHolder publishes the current listing index. Readers always see a
// complete index; a refresh builds a new one and swaps it in.
type IndexHolder struct {
	current atomic.Pointer[listing.Index]
}

func NewIndexHolder(idx *listing.Index) *IndexHolder {
	h := &IndexHolder{}
	if idx != nil {
		h.current.Store(idx)
	}
	return h
}

// Load returns the current index, nil before the first swap.
func (h *IndexHolder) Load() *listing.Index {
	return h.current.Load()
}

// Swap publishes idx and returns the previous index.
func (h *IndexHolder) Swap(idx *listing.Index) *listing.Index {
	return h.current.Swap(idx)
}
