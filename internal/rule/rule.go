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

// Package rule holds the switch-facing forwarding rule descriptor
// (spec.md §3/§4.5/§4.6): the shape the Reconciler computes and the
// Switch Session Manager installs.
package rule

// SentinelCookie is the fixed, process-constant cookie tagging every
// controller-installed rule (spec.md §4.5/§6). Cookie-scoped delete uses
// this value with an all-ones mask; baseline rules carry cookie 0 and are
// never touched by it.
const SentinelCookie uint64 = 0xDEADBEEF

// Action is a forwarding action applied to matching traffic. An empty
// Actions slice on a Rule means drop (spec.md §4.6).
type Action string

// Rule is one desired or installed forwarding rule. SrcIP/DstIP are match
// values, not necessarily single addresses — a literal IP block resolved
// from a policy Selector (spec.md §3/§4.3) carries its CIDR or wildcard
// form straight through (e.g. "0.0.0.0/0"), since OpenFlow's ipv4_src/
// ipv4_dst match fields accept a prefix directly.
type Rule struct {
	SrcIP    string
	DstIP    string
	Actions  []Action
	Priority int
	Cookie   uint64
}

// Key returns a value suitable for set membership/sorting: the
// (src,dst,priority) tuple that identifies a rule independent of cookie.
type Key struct {
	SrcIP    string
	DstIP    string
	Priority int
}

// KeyOf returns r's Key.
func (r Rule) KeyOf() Key {
	return Key{SrcIP: r.SrcIP, DstIP: r.DstIP, Priority: r.Priority}
}

// IsDrop reports whether r has no actions, i.e. drops matching traffic.
func (r Rule) IsDrop() bool {
	return len(r.Actions) == 0
}
