// Package sectorlru implements the fixed-capacity, fully pre-allocated LRU
// cache from spec §4.5. Storage for every slot's value is carved out of one
// contiguous backing array up front — no per-entry allocation at runtime —
// the same discipline the teacher's drivers/common/blockcache.BlockCache
// applies to its own fixed `data []byte` buffer, generalized here from a
// bitmap-tracked present/dirty set to a genuine recency-ordered cache with
// an intrusive doubly linked list threaded through parallel index slices
// instead of pointers.
package sectorlru

// Cache is a fixed-capacity mapping from uint32 key to a fixed-size value
// slot, evicting least-recently-used entries on overflow (spec §4.5). All
// methods are no-ops (returning zero values) on a nil *Cache, mirroring the
// "null cache handle" behavior spec §4.5 calls out explicitly.
type Cache struct {
	capacity int
	elemSize int
	storage  []byte

	keys []uint32
	used []bool

	prev, next []int // intrusive doubly linked list; -1 is the list sentinel
	head, tail int    // head = MRU, tail = LRU

	freeList []int
}

// New returns a Cache with room for capacity entries of elemSize bytes each,
// with all N × (header + S) bytes of storage allocated up front.
func New(capacity, elemSize int) *Cache {
	c := &Cache{
		capacity: capacity,
		elemSize: elemSize,
		storage:  make([]byte, capacity*elemSize),
		keys:     make([]uint32, capacity),
		used:     make([]bool, capacity),
		prev:     make([]int, capacity),
		next:     make([]int, capacity),
		head:     -1,
		tail:     -1,
		freeList: make([]int, capacity),
	}
	for i := 0; i < capacity; i++ {
		c.freeList[i] = capacity - 1 - i
	}
	return c
}

func (c *Cache) slot(i int) []byte {
	return c.storage[i*c.elemSize : (i+1)*c.elemSize]
}

func (c *Cache) unlink(i int) {
	p, n := c.prev[i], c.next[i]
	if p != -1 {
		c.next[p] = n
	} else {
		c.head = n
	}
	if n != -1 {
		c.prev[n] = p
	} else {
		c.tail = p
	}
	c.prev[i] = -1
	c.next[i] = -1
}

func (c *Cache) pushFront(i int) {
	c.prev[i] = -1
	c.next[i] = c.head
	if c.head != -1 {
		c.prev[c.head] = i
	}
	c.head = i
	if c.tail == -1 {
		c.tail = i
	}
}

// findSlot does a linear scan for key; spec §4.5 explicitly permits this
// since N is small (the FileFacade uses 36 entries).
func (c *Cache) findSlot(key uint32) (int, bool) {
	for i := 0; i < c.capacity; i++ {
		if c.used[i] && c.keys[i] == key {
			return i, true
		}
	}
	return -1, false
}

// allocateSlot returns an unused slot index, evicting the LRU tail if the
// cache is full.
func (c *Cache) allocateSlot() int {
	if n := len(c.freeList); n > 0 {
		idx := c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
		return idx
	}
	idx := c.tail
	c.unlink(idx)
	c.used[idx] = false
	return idx
}

// Get returns the value slot for key and moves it to the MRU end, or
// (nil, false) on a miss.
func (c *Cache) Get(key uint32) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	idx, ok := c.findSlot(key)
	if !ok {
		return nil, false
	}
	c.unlink(idx)
	c.pushFront(idx)
	return c.slot(idx), true
}

// Set stores a copy of value under key, moving it to the MRU end, evicting
// the LRU entry if the cache is full and key is new. It returns the stored
// slot.
func (c *Cache) Set(key uint32, value []byte) []byte {
	if c == nil {
		return nil
	}
	slot, _ := c.GetOrCreate(key)
	copy(slot, value)
	return slot
}

// GetOrCreate returns the value slot for key, creating (and, if necessary,
// evicting the LRU entry to make room for) a new zero-valued slot if key
// wasn't present. created reports whether a new slot was allocated. Unlike
// Set, it never copies — callers write the slot in place (spec §4.5).
func (c *Cache) GetOrCreate(key uint32) (value []byte, created bool) {
	if c == nil {
		return nil, false
	}
	if idx, ok := c.findSlot(key); ok {
		c.unlink(idx)
		c.pushFront(idx)
		return c.slot(idx), false
	}

	idx := c.allocateSlot()
	c.keys[idx] = key
	c.used[idx] = true
	for i := range c.slot(idx) {
		c.slot(idx)[i] = 0
	}
	c.pushFront(idx)
	return c.slot(idx), true
}

// Remove evicts key if present, reporting whether it was.
func (c *Cache) Remove(key uint32) bool {
	if c == nil {
		return false
	}
	idx, ok := c.findSlot(key)
	if !ok {
		return false
	}
	c.unlink(idx)
	c.used[idx] = false
	c.freeList = append(c.freeList, idx)
	return true
}

// Clear evicts every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	for i := 0; i < c.capacity; i++ {
		c.used[i] = false
	}
	c.head, c.tail = -1, -1
	c.freeList = c.freeList[:0]
	for i := 0; i < c.capacity; i++ {
		c.freeList = append(c.freeList, c.capacity-1-i)
	}
}

// Count reports the number of occupied slots.
func (c *Cache) Count() int {
	if c == nil {
		return 0
	}
	return c.capacity - len(c.freeList)
}

// ElemSize reports the fixed size, in bytes, of each value slot.
func (c *Cache) ElemSize() int {
	if c == nil {
		return 0
	}
	return c.elemSize
}
