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

// Package policy holds the declarative policy record (spec.md §3/§6): the
// JSON shape fetched from the policy repository and the validation rules
// applied to it before it enters the Policy Cache.
package policy

import (
	"fmt"
	"net"

	"github.com/kube-zen/zt-controller/internal/podindex"
)

// Action is the enforcement action a policy requests.
type Action string

const (
	ActionAllow Action = "ALLOW"
	ActionDeny  Action = "DENY"
)

// Status is whether a policy is materialized into the desired rule set.
type Status string

const (
	StatusEnabled  Status = "ENABLED"
	StatusDisabled Status = "DISABLED"
)

// Protocol is the L4 protocol carried in a Service entry.
type Protocol string

const (
	ProtocolTCP  Protocol = "TCP"
	ProtocolUDP  Protocol = "UDP"
	ProtocolICMP Protocol = "ICMP"
)

// Selector mirrors spec.md §3/§6: a label predicate, an IP block, or both.
type Selector struct {
	LabelSelector map[string]string `json:"label_selector,omitempty"`
	IPBlock       string            `json:"ip_block,omitempty"`
}

// ToPodIndexSelector converts a policy Selector into the shape
// internal/podindex.Index.ResolveSelector consumes.
func (s Selector) ToPodIndexSelector() podindex.Selector {
	return podindex.Selector{LabelSelector: s.LabelSelector, IPBlock: s.IPBlock}
}

// Service reserves L4 match fields; spec.md §4.6/§9 treats port-level
// matching as schema-supported but not required to be emitted.
type Service struct {
	Protocol Protocol `json:"protocol"`
	Port     int      `json:"port,omitempty"`
}

// Policy mirrors the policy repository's JSON record shape (spec.md §6)
// exactly.
type Policy struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Priority    int       `json:"priority"`
	Source      Selector  `json:"source"`
	Destination Selector  `json:"destination"`
	Service     []Service `json:"service,omitempty"`
	Action      Action    `json:"action"`
	Status      Status    `json:"status"`
}

// DefaultPriority and MitigationPriority are the two priority bands
// named in spec.md §3.
const (
	DefaultPriority    = 1000
	MitigationPriority = 65000
)

// Validate checks id uniqueness-independent field invariants: priority
// range, action/status enum membership, and that any ip_block parses as
// CIDR. Uniqueness of ID across the full policy set is enforced by
// internal/policycache.Cache.Replace (last writer wins, logged), since a
// single Policy carries no view of its siblings.
func Validate(p Policy) error {
	if p.ID == "" {
		return fmt.Errorf("policy id must not be empty")
	}
	if p.Priority < 0 {
		return fmt.Errorf("policy %s: priority must be non-negative, got %d", p.ID, p.Priority)
	}
	switch p.Action {
	case ActionAllow, ActionDeny:
	default:
		return fmt.Errorf("policy %s: action must be ALLOW or DENY, got %q", p.ID, p.Action)
	}
	switch p.Status {
	case StatusEnabled, StatusDisabled:
	default:
		return fmt.Errorf("policy %s: status must be ENABLED or DISABLED, got %q", p.ID, p.Status)
	}
	if err := validateSelector(p.ID, "source", p.Source); err != nil {
		return err
	}
	if err := validateSelector(p.ID, "destination", p.Destination); err != nil {
		return err
	}
	for _, svc := range p.Service {
		switch svc.Protocol {
		case ProtocolTCP, ProtocolUDP, ProtocolICMP:
		default:
			return fmt.Errorf("policy %s: service protocol must be TCP, UDP, or ICMP, got %q", p.ID, svc.Protocol)
		}
		if svc.Port != 0 && (svc.Port < 1 || svc.Port > 65535) {
			return fmt.Errorf("policy %s: service port %d out of range [1,65535]", p.ID, svc.Port)
		}
	}
	return nil
}

func validateSelector(id, field string, sel Selector) error {
	if sel.IPBlock == "" {
		return nil
	}
	if _, _, err := net.ParseCIDR(sel.IPBlock); err != nil {
		return fmt.Errorf("policy %s: %s.ip_block %q is not valid CIDR: %w", id, field, sel.IPBlock, err)
	}
	return nil
}

// Enabled reports whether p should be materialized into the desired rule
// set (spec.md §3: "only status=ENABLED policies are materialized").
func (p Policy) Enabled() bool {
	return p.Status == StatusEnabled
}
