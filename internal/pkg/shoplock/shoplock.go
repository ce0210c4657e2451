package shoplock

import "sync"

// Keyed serializes mutations per shop domain. Install completion, charge
// activation and webhook-driven updates for the same shop must not run
// concurrently; different shops proceed in parallel.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty keyed lock.
func New() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for the given shop domain, creating it on first
// use. Entries are reference-counted and dropped again on final Unlock so
// the map does not grow with dead tenants.
func (k *Keyed) Lock(domain string) {
	k.mu.Lock()
	e, ok := k.locks[domain]
	if !ok {
		e = &entry{}
		k.locks[domain] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given shop domain.
func (k *Keyed) Unlock(domain string) {
	k.mu.Lock()
	e, ok := k.locks[domain]
	if !ok {
		k.mu.Unlock()
		panic("shoplock: unlock of unheld domain " + domain)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, domain)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Do runs fn while holding the shop's lock.
func (k *Keyed) Do(domain string, fn func() error) error {
	k.Lock(domain)
	defer k.Unlock(domain)
	return fn()
}
