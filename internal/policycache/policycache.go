/*
Copyright 2025 Kube-ZEN Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package policycache holds the in-memory snapshot of enabled policies
// (spec.md §4.4): atomically swapped by the Policy Poller, read by the
// Reconciler. The snapshot is immutable between refreshes.
package policycache

import (
	"sync/atomic"

	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/policy"
)

// Cache holds the current atomic snapshot of enabled policies.
type Cache struct {
	snapshot atomic.Pointer[[]policy.Policy]
	synced   atomic.Bool
	logger   *logging.Logger
}

// New creates an empty, not-yet-synced Cache.
func New() *Cache {
	c := &Cache{logger: logging.NewLogger("policycache")}
	empty := []policy.Policy{}
	c.snapshot.Store(&empty)
	return c
}

// Replace atomically swaps in a new snapshot. Policies are expected to
// already be filtered to status=ENABLED (spec.md §3/§4.4) — Replace does
// not re-filter. It enforces spec.md §3's global id-uniqueness invariant:
// policies are deduplicated on id, last writer wins, with a warning logged
// per collision (spec.md §7's invariant-violation row).
func (c *Cache) Replace(policies []policy.Policy) {
	byID := make(map[string]int, len(policies))
	snap := make([]policy.Policy, 0, len(policies))
	for _, p := range policies {
		if i, dup := byID[p.ID]; dup {
			c.logger.Warn("duplicate policy id, keeping last writer",
				logging.String("policy_id", p.ID))
			snap[i] = p
			continue
		}
		byID[p.ID] = len(snap)
		snap = append(snap, p)
	}
	c.snapshot.Store(&snap)
	c.synced.Store(true)
}

// Snapshot returns a copy of the current policy set. Returning a copy
// rather than the stored slice itself means a caller mutating an element
// in place can never corrupt what the next Snapshot call (or a
// concurrent reader) observes.
func (c *Cache) Snapshot() []policy.Policy {
	p := c.snapshot.Load()
	if p == nil {
		return nil
	}
	out := make([]policy.Policy, len(*p))
	copy(out, *p)
	return out
}

// Synced reports whether the cache has ever received a successful refresh
// — used by the readiness checker (spec.md §2.1 Health expansion). An
// empty policy set from a successful refresh still counts as synced.
func (c *Cache) Synced() bool {
	return c.synced.Load()
}
