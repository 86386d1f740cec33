// Package hostmem manages the host-visible memory blocks that back transfer
// textures.
//
// An Allocator enforces an optional byte budget over live blocks and keeps
// released blocks in an LRU recycle list so that uninitialized allocations
// can reuse them without touching their contents. Cleared allocations are
// always zero-filled, whether fresh or recycled.
package hostmem

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// Allocation errors.
var (
	// ErrBudgetExceeded is returned when an allocation would exceed the budget.
	ErrBudgetExceeded = errors.New("hostmem: memory budget exceeded")

	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("hostmem: invalid allocation size")
)

// Default limits.
const (
	// DefaultRecycleMB is the default cap on memory parked in the recycle list.
	DefaultRecycleMB = 64

	// wordSize is the backing granularity; blocks are 8-byte aligned.
	wordSize = 8
)

// Config holds configuration for creating an Allocator.
type Config struct {
	// BudgetMB caps the bytes held by live blocks. Zero means unlimited.
	BudgetMB int

	// RecycleMB caps the bytes kept for reuse after Free.
	// Zero selects DefaultRecycleMB; negative disables recycling.
	RecycleMB int
}

// Stats contains host memory usage statistics.
type Stats struct {
	// BudgetBytes is the configured budget, zero when unlimited.
	BudgetBytes uint64

	// UsedBytes is the memory held by live blocks.
	UsedBytes uint64

	// RecycledBytes is the memory parked in the recycle list.
	RecycledBytes uint64

	// LiveBlocks is the number of blocks not yet freed.
	LiveBlocks int

	// Allocations counts successful Alloc calls.
	Allocations uint64

	// Reuses counts allocations served from the recycle list.
	Reuses uint64

	// Evictions counts recycled blocks dropped to honour the recycle cap.
	Evictions uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("HostMem[%d live, %d KB used, %d KB recycled, %d allocs, %d reuses, %d evictions]",
		s.LiveBlocks, s.UsedBytes/1024, s.RecycledBytes/1024, s.Allocations, s.Reuses, s.Evictions)
}

// Block is one host allocation. The zero value is not usable.
type Block struct {
	words []uint64
	size  int
	owner *Allocator
	freed bool
}

// Bytes returns the block's memory, exactly the requested size.
// The slice must not be used after Free.
func (b *Block) Bytes() []byte {
	if b.freed || b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), b.size)
}

// Len returns the block size in bytes.
func (b *Block) Len() int { return b.size }

// recycled is an entry in the recycle list.
type recycled struct {
	words []uint64
}

// Allocator hands out Blocks. It is safe for concurrent use.
type Allocator struct {
	mu sync.Mutex

	budgetBytes  uint64
	recycleBytes uint64 // cap
	usedBytes    uint64
	parkedBytes  uint64
	live         int

	// bySize maps a word count to recycle list elements of that size.
	bySize map[int][]*list.Element

	// lru holds recycled entries, front = most recently freed.
	lru *list.List

	allocations uint64
	reuses      uint64
	evictions   uint64
}

// New creates an Allocator.
func New(cfg Config) *Allocator {
	recycleMB := cfg.RecycleMB
	if recycleMB == 0 {
		recycleMB = DefaultRecycleMB
	}
	if recycleMB < 0 {
		recycleMB = 0
	}
	budgetMB := max(cfg.BudgetMB, 0)

	//nolint:gosec // G115: both values are clamped non-negative
	return &Allocator{
		budgetBytes:  uint64(budgetMB) * 1024 * 1024,
		recycleBytes: uint64(recycleMB) * 1024 * 1024,
		bySize:       make(map[int][]*list.Element),
		lru:          list.New(),
	}
}

// Alloc returns a block of size bytes. With zero set every byte is zero;
// otherwise the contents are unspecified and may hold bytes from a block
// that was freed earlier.
func (a *Allocator) Alloc(size int, zero bool) (*Block, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	n := (size + wordSize - 1) / wordSize
	//nolint:gosec // G115: n is positive
	bytes := uint64(n) * wordSize

	a.mu.Lock()
	if a.budgetBytes > 0 && a.usedBytes+bytes > a.budgetBytes {
		used, budget := a.usedBytes, a.budgetBytes
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrBudgetExceeded, bytes, used, budget)
	}
	words := a.takeLocked(n)
	a.usedBytes += bytes
	a.live++
	a.allocations++
	if words != nil {
		a.reuses++
	}
	a.mu.Unlock()

	switch {
	case words == nil:
		words = make([]uint64, n)
	case zero:
		clear(words)
	}
	return &Block{words: words, size: size, owner: a}, nil
}

// Free releases a block. Freeing a block twice is a no-op.
func (a *Allocator) Free(b *Block) {
	if b == nil || b.owner != a {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if b.freed {
		return
	}
	b.freed = true
	words := b.words
	b.words = nil

	//nolint:gosec // G115: len is non-negative
	bytes := uint64(len(words)) * wordSize
	a.usedBytes -= bytes
	a.live--

	if bytes > a.recycleBytes {
		return
	}
	a.parkLocked(words, bytes)
}

// Stats returns current usage statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Stats{
		BudgetBytes:   a.budgetBytes,
		UsedBytes:     a.usedBytes,
		RecycledBytes: a.parkedBytes,
		LiveBlocks:    a.live,
		Allocations:   a.allocations,
		Reuses:        a.reuses,
		Evictions:     a.evictions,
	}
}

// Trim drops every recycled block.
func (a *Allocator) Trim() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lru.Init()
	a.bySize = make(map[int][]*list.Element)
	a.parkedBytes = 0
}

// takeLocked pops the most recently freed block of exactly n words.
// Caller must hold a.mu.
func (a *Allocator) takeLocked(n int) []uint64 {
	elems := a.bySize[n]
	if len(elems) == 0 {
		return nil
	}
	e := elems[len(elems)-1]
	a.dropIndexLocked(n, len(elems)-1)
	a.lru.Remove(e)
	r := e.Value.(*recycled)
	//nolint:gosec // G115: n is positive
	a.parkedBytes -= uint64(n) * wordSize
	return r.words
}

// parkLocked adds words to the recycle list, evicting the oldest entries
// until the cap holds. Caller must hold a.mu.
func (a *Allocator) parkLocked(words []uint64, bytes uint64) {
	for a.parkedBytes+bytes > a.recycleBytes {
		oldest := a.lru.Back()
		if oldest == nil {
			break
		}
		a.evictLocked(oldest)
	}
	e := a.lru.PushFront(&recycled{words: words})
	a.bySize[len(words)] = append(a.bySize[len(words)], e)
	a.parkedBytes += bytes
}

// evictLocked removes one recycle entry. Caller must hold a.mu.
func (a *Allocator) evictLocked(e *list.Element) {
	r := e.Value.(*recycled)
	n := len(r.words)
	elems := a.bySize[n]
	for i, x := range elems {
		if x == e {
			a.dropIndexLocked(n, i)
			break
		}
	}
	a.lru.Remove(e)
	//nolint:gosec // G115: n is non-negative
	a.parkedBytes -= uint64(n) * wordSize
	a.evictions++
}

func (a *Allocator) dropIndexLocked(n, i int) {
	elems := a.bySize[n]
	elems = append(elems[:i], elems[i+1:]...)
	if len(elems) == 0 {
		delete(a.bySize, n)
		return
	}
	a.bySize[n] = elems
}
