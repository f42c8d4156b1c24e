// Package secret holds short-lived credentials out of band of workflow
// payloads. Temporal persists workflow and activity inputs in its event
// history, so a personal access token must never be a workflow argument;
// instead the transport stores it here and passes an opaque reference. The
// entry is consumed by the first Take, making non-retention structural.
package secret

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const sweepInterval = time.Minute

type entry struct {
	value   string
	expires time.Time
}

// Vault is a process-local, single-use credential store with a TTL safety
// net for entries whose workflow never ran.
type Vault struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewVault creates a vault whose entries expire after ttl. A background
// sweeper removes expired entries until Close is called.
func NewVault(ttl time.Duration) *Vault {
	v := &Vault{
		entries: make(map[string]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go v.sweep()
	return v
}

// Put stores a credential and returns an opaque one-use reference.
func (v *Vault) Put(value string) string {
	ref := uuid.NewString()
	v.mu.Lock()
	v.entries[ref] = entry{value: value, expires: time.Now().Add(v.ttl)}
	v.mu.Unlock()
	return ref
}

// Take returns the credential for ref and deletes it. The second return is
// false when the reference is unknown, already used, or expired.
func (v *Vault) Take(ref string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[ref]
	if !ok {
		return "", false
	}
	delete(v.entries, ref)
	if time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

// Drop removes a reference without reading it, for submissions that never
// reach the workflow (validation failures, workflow start errors).
func (v *Vault) Drop(ref string) {
	v.mu.Lock()
	delete(v.entries, ref)
	v.mu.Unlock()
}

// Close stops the background sweeper and clears all entries.
func (v *Vault) Close() {
	v.once.Do(func() { close(v.done) })
	v.mu.Lock()
	v.entries = make(map[string]entry)
	v.mu.Unlock()
}

func (v *Vault) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.done:
			return
		case now := <-ticker.C:
			v.mu.Lock()
			for ref, e := range v.entries {
				if now.After(e.expires) {
					delete(v.entries, ref)
				}
			}
			v.mu.Unlock()
		}
	}
}
