package tracker

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aescarias/apricot/wireid"
)

// Torrent is one swarm: the set of peers currently announced for a
// single info-hash, plus the counters the tracker reports back.
type Torrent struct {
	InfoHash   wireid.InfoHash
	Peers      map[string]*Peer
	Complete   uint64
	Incomplete uint64
	Downloaded uint64
}

// newTorrent creates an empty swarm for hash.
func newTorrent(hash wireid.InfoHash) *Torrent {
	return &Torrent{InfoHash: hash, Peers: make(map[string]*Peer)}
}

// updateCounts recomputes Complete/Incomplete from the current peer
// set. left == 0 means the peer is a seeder (complete).
func (t *Torrent) updateCounts() {
	var complete, incomplete uint64
	for _, p := range t.Peers {
		if p.IsSeeder() {
			complete++
		} else {
			incomplete++
		}
	}
	t.Complete = complete
	t.Incomplete = incomplete
}

// selectPeers implements step 7 of the announce handler: cap at count,
// exclude the announcing peer, exclude stale entries, optionally
// restrict to crypto-capable peers, then randomly sample and shuffle.
func (t *Torrent) selectPeers(count int, exclude *Peer, requireCrypto bool, timeout time.Duration, now time.Time) []*Peer {
	var candidates []*Peer
	cutoff := now.Add(-timeout)

	for _, p := range t.Peers {
		if exclude != nil && p.Identity() == exclude.Identity() {
			continue
		}
		if p.LastSeen.Before(cutoff) {
			continue
		}
		if requireCrypto && !p.SupportCrypto {
			continue
		}
		candidates = append(candidates, p)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if count >= 0 && len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// Registry is the mutex-guarded, in-memory swarm store shared by every
// announce request. Torrents are materialized lazily on first touch
// and are never implicitly evicted.
type Registry struct {
	mu       sync.Mutex
	torrents map[wireid.InfoHash]*Torrent
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{torrents: make(map[wireid.InfoHash]*Torrent)}
}

// Torrents returns a snapshot of all known info-hashes. It does not
// expose live Torrent pointers for mutation.
func (r *Registry) Torrents() []wireid.InfoHash {
	r.mu.Lock()
	defer r.mu.Unlock()

	hashes := make([]wireid.InfoHash, 0, len(r.torrents))
	for h := range r.torrents {
		hashes = append(hashes, h)
	}
	return hashes
}

// WithTorrent runs fn with the registry's mutex held and t bound to
// the (lazily materialized) Torrent for hash. The entire critical
// section of an announce — peer insert/remove, count recomputation,
// and response peer selection — must run inside a single call so the
// registry never observes a torn update.
func (r *Registry) WithTorrent(hash wireid.InfoHash, fn func(t *Torrent)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.torrents[hash]
	if !ok {
		t = newTorrent(hash)
		r.torrents[hash] = t
	}
	fn(t)
}
