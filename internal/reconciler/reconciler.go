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

// Package reconciler owns the Reconciler (spec.md §4.6): the single
// serialized consumer that translates (Policy Cache × Pod Index ×
// connected switches) into installed switch rules, and drives
// convergence whenever any of its four input sources signals a change.
package reconciler

import (
	"context"
	"sort"
	"sync"
	"time"

	"k8s.io/client-go/util/workqueue"

	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/metrics"
	"github.com/kube-zen/zt-controller/internal/observability"
	"github.com/kube-zen/zt-controller/internal/podindex"
	"github.com/kube-zen/zt-controller/internal/policy"
	"github.com/kube-zen/zt-controller/internal/policycache"
	"github.com/kube-zen/zt-controller/internal/rule"
)

// reconcileKey is the single sentinel key every input source enqueues.
// workqueue's own "Add on an already-queued key is a no-op until
// processed" behavior is the dirty-bit coalescing spec.md §4.6/§8
// requires — no separate boolean is needed.
const reconcileKey = "reconcile"

// SwitchDriver is the subset of internal/switchmgr.Manager the
// Reconciler drives: installing/removing rules and advising role.
type SwitchDriver interface {
	ListSwitches() []string
	InstallRule(ctx context.Context, switchID string, r rule.Rule) error
	DeleteByCookie(ctx context.Context, switchID string, cookie uint64) error
	SetLeader(ctx context.Context, leader bool)
}

// Reconciler is the single-writer state machine driving rule
// convergence.
type Reconciler struct {
	queue       workqueue.RateLimitingInterface
	podIndex    *podindex.Index
	policyCache *policycache.Cache
	switches    SwitchDriver
	recorder    *metrics.Recorder
	logger      *logging.Logger

	// RefreshPolicies is invoked synchronously on BECAME_LEADER, before
	// the resulting full reconcile is enqueued (spec.md §4.6 — "performs
	// a full refresh of the Policy Cache"). Optional.
	RefreshPolicies func(ctx context.Context) error

	mu       sync.Mutex
	leader   bool
	warnedAllow map[string]struct{}
}

// New creates a Reconciler. podIndex, policyCache, and switches are
// read during each reconcile pass; nothing here mutates them except via
// switches' install/delete operations.
func New(podIndex *podindex.Index, policyCache *policycache.Cache, switches SwitchDriver, recorder *metrics.Recorder) *Reconciler {
	return &Reconciler{
		queue:       workqueue.NewNamedRateLimitingQueue(workqueue.DefaultControllerRateLimiter(), "zt-reconciler"),
		podIndex:    podIndex,
		policyCache: policyCache,
		switches:    switches,
		recorder:    recorder,
		logger:      logging.NewLogger("reconciler"),
		warnedAllow: make(map[string]struct{}),
	}
}

// NotifyPodEvent enqueues a reconcile pass. Called by the Orchestrator
// Watcher after applying a pod event (spec.md §4.6 input 2).
func (r *Reconciler) NotifyPodEvent() { r.enqueue() }

// NotifyPolicyRefresh enqueues a reconcile pass. Called by the Policy
// Poller after a successful refresh (spec.md §4.6 input 3).
func (r *Reconciler) NotifyPolicyRefresh() { r.enqueue() }

// NotifySwitchConnection enqueues a reconcile pass. Called by the
// Switch Session Manager on connect/disconnect (spec.md §4.6 input 4).
func (r *Reconciler) NotifySwitchConnection() { r.enqueue() }

// NotifyLeaderTransition handles a leadership transition (spec.md §4.6
// input 1): updates the gating flag, broadcasts the matching role to
// every connected switch, and either triggers a full refresh-then-
// reconcile (on BECAME_LEADER) or simply stops issuing installs (on
// BECAME_FOLLOWER, no proactive delete — the new leader reconciles
// authoritatively).
func (r *Reconciler) NotifyLeaderTransition(ctx context.Context, isLeader bool) {
	r.mu.Lock()
	r.leader = isLeader
	r.mu.Unlock()

	r.switches.SetLeader(ctx, isLeader)

	if !isLeader {
		return
	}

	if r.RefreshPolicies != nil {
		if err := r.RefreshPolicies(ctx); err != nil {
			r.logger.Warn("policy refresh on leadership acquisition failed", logging.Error(err))
		}
	}
	r.enqueue()
}

func (r *Reconciler) enqueue() {
	r.queue.Add(reconcileKey)
}

func (r *Reconciler) isLeader() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leader
}

// Run blocks, processing reconcile passes one at a time until ctx is
// cancelled or Shutdown is called.
func (r *Reconciler) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.queue.ShutDown()
	}()

	for {
		key, shutdown := r.queue.Get()
		if shutdown {
			return ctx.Err()
		}
		r.reconcileOnce(ctx)
		r.queue.Done(key)
		r.queue.Forget(key)
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) {
	ctx, span := observability.GetTracer("reconciler").Start(ctx, "reconcile")
	defer span.End()
	start := time.Now()

	if !r.isLeader() {
		// Follower inaction invariant (spec.md §8.4): no cookie-tagged
		// installs or deletes while not leader.
		return
	}

	desired, err := r.computeDesired()
	if err != nil {
		r.logger.Warn("desired-rule computation failed", logging.Error(err))
		if r.recorder != nil {
			r.recorder.RecordReconciliationError(time.Since(start).Seconds())
		}
		return
	}

	for _, switchID := range r.switches.ListSwitches() {
		if !r.isLeader() {
			// Leadership loss mid-pass (spec.md §4.6): abandon as soon as
			// the transition is observed, checked between per-switch ops.
			break
		}

		if err := r.switches.DeleteByCookie(ctx, switchID, rule.SentinelCookie); err != nil {
			r.logger.Warn("cookie-scoped delete failed", logging.String("switch", switchID), logging.Error(err))
			continue
		}

		for _, dr := range desired {
			if err := r.switches.InstallRule(ctx, switchID, dr); err != nil {
				r.logger.Warn("rule install failed", logging.String("switch", switchID), logging.Error(err))
				// Switch write failure on an individual rule: logged;
				// the pass continues for remaining rules (spec.md §7).
			}
		}
	}

	if r.recorder != nil {
		r.recorder.RecordReconciliationSuccess(time.Since(start).Seconds())
	}
}

// desiredEntry pairs a computed rule with the policy id that produced
// it, so the sort step can apply spec.md §4.6's (policy-id, src, dst)
// tie-break before the policy id itself is discarded.
type desiredEntry struct {
	policyID string
	rule     rule.Rule
}

// computeDesired resolves every enabled DENY policy's source/destination
// Selectors against the Pod Index and emits one drop rule per (s,d) pair
// (spec.md §4.6). ALLOW policies are not materialized; each is logged
// once (spec.md §9 — "documented non-goal; log once per policy").
func (r *Reconciler) computeDesired() ([]rule.Rule, error) {
	policies := r.policyCache.Snapshot()

	entries := make([]desiredEntry, 0)
	for _, p := range policies {
		if !p.Enabled() {
			continue
		}
		if p.Action == policy.ActionAllow {
			r.warnAllowOnce(p.ID)
			continue
		}

		srcIPs, err := r.podIndex.ResolveSelector(p.Source.ToPodIndexSelector())
		if err != nil {
			r.logger.Warn("invalid source selector", logging.String("policy_id", p.ID), logging.Error(err))
			continue
		}
		dstIPs, err := r.podIndex.ResolveSelector(p.Destination.ToPodIndexSelector())
		if err != nil {
			r.logger.Warn("invalid destination selector", logging.String("policy_id", p.ID), logging.Error(err))
			continue
		}

		for _, s := range srcIPs {
			for _, d := range dstIPs {
				entries = append(entries, desiredEntry{
					policyID: p.ID,
					rule: rule.Rule{
						SrcIP:    s,
						DstIP:    d,
						Actions:  nil, // drop
						Priority: p.Priority,
						Cookie:   rule.SentinelCookie,
					},
				})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].policyID != entries[j].policyID {
			return entries[i].policyID < entries[j].policyID
		}
		if entries[i].rule.SrcIP != entries[j].rule.SrcIP {
			return entries[i].rule.SrcIP < entries[j].rule.SrcIP
		}
		return entries[i].rule.DstIP < entries[j].rule.DstIP
	})

	out := make([]rule.Rule, len(entries))
	for i, e := range entries {
		out[i] = e.rule
	}
	return out, nil
}

func (r *Reconciler) warnAllowOnce(policyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, warned := r.warnedAllow[policyID]; warned {
		return
	}
	r.warnedAllow[policyID] = struct{}{}
	r.logger.Warn("ALLOW policy is schema-supported but not materialized into rules", logging.String("policy_id", policyID))
}
