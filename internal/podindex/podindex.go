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

// Package podindex holds the in-memory mapping from pod IP to label set
// (spec.md §4.3): single-writer, updated from the Orchestrator Watcher,
// and queried by the Reconciler to resolve a policy Selector into the set
// of matching pod IPs.
package podindex

import (
	"net"
	"sort"
	"sync"

	"k8s.io/apimachinery/pkg/labels"
)

// Record is one pod's current IP, labels, and node.
type Record struct {
	IP     string
	Labels map[string]string
	Node   string
}

// Selector mirrors the policy Selector from spec.md §3: a flat label
// predicate, an IP block, or both (the union of resolved IPs). An empty
// label predicate matches no pods by label — it must never degenerate to
// "all pods" (spec.md §4.3).
type Selector struct {
	LabelSelector map[string]string
	IPBlock       string
}

// Index is the Pod Index: single writer (the Reconciler, driven by the
// Orchestrator Watcher's event stream), occasional concurrent readers
// (selector resolution, readiness checks).
type Index struct {
	mu   sync.RWMutex
	pods map[string]Record // keyed by IP
}

// NewIndex creates an empty Pod Index.
func NewIndex() *Index {
	return &Index{pods: make(map[string]Record)}
}

// Upsert inserts or overwrites the record for ip. Handles the ADDED and
// MODIFIED watch event types from spec.md §4.2.
func (idx *Index) Upsert(ip string, labels map[string]string, node string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pods[ip] = Record{IP: ip, Labels: copyLabels(labels), Node: node}
}

// Remove deletes the record for ip, if present. Handles the DELETED watch
// event type.
func (idx *Index) Remove(ip string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.pods, ip)
}

// Len returns the number of tracked pod records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.pods)
}

// Get returns the record for ip and whether it exists.
func (idx *Index) Get(ip string) (Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	r, ok := idx.pods[ip]
	return r, ok
}

// Snapshot returns a copy of every tracked record, for diagnostics and
// readiness reporting.
func (idx *Index) Snapshot() []Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Record, 0, len(idx.pods))
	for _, r := range idx.pods {
		out = append(out, r)
	}
	return out
}

// ResolveSelector returns the sorted, deduplicated set of match values for
// sel: pods whose labels satisfy every key/value pair in LabelSelector,
// unioned with the literal IPBlock itself. IPBlock is emitted as-is — a
// CIDR or a single host address — never filtered through currently-tracked
// Pod Index membership, so a policy can mitigate an address the Pod Index
// has never observed (e.g. a "deny from 0.0.0.0/0" policy). A Selector with
// neither a label predicate nor an IP block resolves to the empty set —
// ResolveSelector never falls back to "every pod" (spec.md §4.3).
func (idx *Index) ResolveSelector(sel Selector) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matched := make(map[string]struct{})

	if len(sel.LabelSelector) > 0 {
		want := labels.SelectorFromSet(labels.Set(sel.LabelSelector))
		for ip, rec := range idx.pods {
			if want.Matches(labels.Set(rec.Labels)) {
				matched[ip] = struct{}{}
			}
		}
	}

	if sel.IPBlock != "" {
		if _, _, err := net.ParseCIDR(sel.IPBlock); err != nil {
			return nil, err
		}
		matched[sel.IPBlock] = struct{}{}
	}

	result := make([]string, 0, len(matched))
	for ip := range matched {
		result = append(result, ip)
	}
	sort.Strings(result)
	return result, nil
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
