package presale

import (
	"bytes"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// lockSet serializes operations per resource key. Keys are always taken in
// byte order so two operations sharing resources cannot deadlock.
type lockSet struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[solana.PublicKey]*keyLock)}
}

// acquire blocks until every key is held and returns the matching release
func (s *lockSet) acquire(keys ...solana.PublicKey) func() {
	sorted := make([]solana.PublicKey, 0, len(keys))
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	held := make([]*keyLock, 0, len(sorted))
	for _, k := range sorted {
		s.mu.Lock()
		l, ok := s.locks[k]
		if !ok {
			l = &keyLock{}
			s.locks[k] = l
		}
		l.refs++
		s.mu.Unlock()

		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			s.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(s.locks, sorted[i])
			}
			s.mu.Unlock()
		}
	}
}

func (s *lockSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
