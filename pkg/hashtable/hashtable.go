// Package hashtable implements a generic, bucket-chained hash table with a
// lock-free Get() and locked Set()/Del(), used as the capability table's
// token-to-endpoint store. Adapted from the teacher's interface{}-keyed
// hashtable to use type parameters, matching the generics style the
// teacher already uses in util.Min/Roundup.
package hashtable

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

type elem_t[K comparable, V any] struct {
	key     K
	value   V
	keyHash uint32
	next    *elem_t[K, V]
}

type bucket_t[K comparable, V any] struct {
	sync.RWMutex
	first *elem_t[K, V]
}

func (b *bucket_t[K, V]) len() int {
	b.RLock()
	defer b.RUnlock()
	l := 0
	for e := b.first; e != nil; e = e.next {
		l++
	}
	return l
}

func (b *bucket_t[K, V]) elems() []Pair[K, V] {
	b.RLock()
	defer b.RUnlock()
	p := make([]Pair[K, V], 0)
	for e := b.first; e != nil; e = e.next {
		p = append(p, Pair[K, V]{Key: e.key, Value: e.value})
	}
	return p
}

// / Hashtable is a basic bucket-chained hash table. Buckets are protected
// / individually; there is no table-wide lock (see pkg/proc for that
// / discipline instead, which needs a single-writer/many-reader word).
type Hashtable[K comparable, V any] struct {
	table    []*bucket_t[K, V]
	hashfn   func(K) uint32
	maxchain int
}

// / New allocates a hash table with size buckets, hashing keys with hashfn.
func New[K comparable, V any](size int, hashfn func(K) uint32) *Hashtable[K, V] {
	ht := &Hashtable[K, V]{
		table:    make([]*bucket_t[K, V], size),
		hashfn:   hashfn,
		maxchain: 1,
	}
	for i := range ht.table {
		ht.table[i] = &bucket_t[K, V]{}
	}
	return ht
}

// / Pair is a key/value tuple returned by Elems.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// / Size returns the total number of elements stored in the table.
func (ht *Hashtable[K, V]) Size() int {
	n := 0
	for _, b := range ht.table {
		n += b.len()
	}
	return n
}

// / Elems returns all key/value pairs currently stored.
func (ht *Hashtable[K, V]) Elems() []Pair[K, V] {
	p := make([]Pair[K, V], 0)
	for _, b := range ht.table {
		p = append(p, b.elems()...)
	}
	return p
}

// / Get looks up key without taking the bucket lock, matching the
// / teacher's lock-free-read discipline: safe because Set/Del only ever
// / publish a fully-formed node via an atomic pointer store.
func (ht *Hashtable[K, V]) Get(key K) (V, bool) {
	kh := ht.khash(key)
	b := ht.table[ht.bucketIdx(kh)]
	n := 0
	for e := loadptr(&b.first); e != nil; e = loadptr(&e.next) {
		if e.keyHash == kh && e.key == key {
			return e.value, true
		}
		n++
		if n > ht.maxchain {
			ht.maxchain = n
		}
	}
	var zero V
	return zero, false
}

// / Set inserts a key/value pair. Returns false without modifying the
// / table if the key is already present (callers needing overwrite should
// / Del then Set).
func (ht *Hashtable[K, V]) Set(key K, value V) bool {
	kh := ht.khash(key)
	b := ht.table[ht.bucketIdx(kh)]
	b.Lock()
	defer b.Unlock()

	add := func(last *elem_t[K, V]) {
		n := &elem_t[K, V]{key: key, value: value, keyHash: kh}
		if last == nil {
			n.next = b.first
			storeptr(&b.first, n)
		} else {
			n.next = last.next
			storeptr(&last.next, n)
		}
	}

	var last *elem_t[K, V]
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && e.key == key {
			return false
		}
		if kh < e.keyHash {
			add(last)
			return true
		}
		last = e
	}
	add(last)
	return true
}

// / Del removes a key from the table. No-op if the key is absent.
func (ht *Hashtable[K, V]) Del(key K) {
	kh := ht.khash(key)
	b := ht.table[ht.bucketIdx(kh)]
	b.Lock()
	defer b.Unlock()

	var last *elem_t[K, V]
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && e.key == key {
			if last == nil {
				storeptr(&b.first, e.next)
			} else {
				storeptr(&last.next, e.next)
			}
			return
		}
		last = e
	}
}

// / Iter applies f to each key/value pair until f returns true.
func (ht *Hashtable[K, V]) Iter(f func(K, V) bool) bool {
	for _, b := range ht.table {
		b.RLock()
		for e := b.first; e != nil; e = e.next {
			if f(e.key, e.value) {
				b.RUnlock()
				return true
			}
		}
		b.RUnlock()
	}
	return false
}

func (ht *Hashtable[K, V]) bucketIdx(keyHash uint32) int {
	return int(keyHash % uint32(len(ht.table)))
}

func (ht *Hashtable[K, V]) khash(key K) uint32 {
	return uint32(2654435761) * ht.hashfn(key)
}

// Without an explicit memory model it's hard to be certain this is safe on
// every target; LoadPointer/StorePointer issue no fence. The teacher's own
// comment on this makes the same caveat about x86; we keep it since the
// target here is likewise single-core cooperative (see spec §5).
func loadptr[K comparable, V any](e **elem_t[K, V]) *elem_t[K, V] {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(e))
	p := atomic.LoadPointer(ptr)
	return (*elem_t[K, V])(p)
}

func storeptr[K comparable, V any](p **elem_t[K, V], n *elem_t[K, V]) {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(p))
	atomic.StorePointer(ptr, (unsafe.Pointer)(n))
}
