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

// Package policypoller periodically reloads the enabled policy set from
// the policy repository while this replica is leader (spec.md §4.4),
// feeding successful refreshes into the Policy Cache.
package policypoller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kube-zen/zt-controller/internal/httpclient"
	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/metrics"
	"github.com/kube-zen/zt-controller/internal/policy"
	"github.com/kube-zen/zt-controller/internal/policycache"
	"github.com/kube-zen/zt-controller/internal/retry"
	"github.com/kube-zen/zt-controller/internal/xerrors"
)

// DefaultFetchTimeout bounds a single fetch cycle, including retries
// (spec.md §5).
const DefaultFetchTimeout = 10 * time.Second

// Poller reloads enabled policies from repoURL on an interval, while
// leader, and replaces the Policy Cache's snapshot on success.
type Poller struct {
	client   *httpclient.Client
	repoURL  string
	interval time.Duration
	cache    *policycache.Cache
	recorder *metrics.Recorder
	logger   *logging.Logger

	isLeader func() bool
	notify   chan<- struct{}
}

// New creates a Poller. isLeader is polled before each fetch; a non-leader
// replica skips the cycle entirely (spec.md §4.4 — "leader-gated"). notify,
// if non-nil, is signaled after every successful refresh.
func New(client *httpclient.Client, repoURL string, interval time.Duration, cache *policycache.Cache, recorder *metrics.Recorder, isLeader func() bool, notify chan<- struct{}) *Poller {
	return &Poller{
		client:   client,
		repoURL:  repoURL,
		interval: interval,
		cache:    cache,
		recorder: recorder,
		logger:   logging.NewLogger("policypoller"),
		isLeader: isLeader,
		notify:   notify,
	}
}

// Run blocks, polling every p.interval until ctx is cancelled. The first
// poll happens immediately rather than waiting a full interval.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// Trigger runs a single poll cycle synchronously, bypassing the ticker.
// Called by the Reconciler on BECAME_LEADER (spec.md §4.6 — "performs a
// full refresh of the Policy Cache" before the resulting reconcile pass).
func (p *Poller) Trigger(ctx context.Context) {
	p.pollOnce(ctx)
}

func (p *Poller) pollOnce(ctx context.Context) {
	if p.isLeader != nil && !p.isLeader() {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	policies, err := p.fetchWithRetry(fetchCtx)
	if err != nil {
		p.logger.Warn("policy refresh failed, retaining previous snapshot", logging.Error(err))
		if p.recorder != nil {
			p.recorder.RecordError(xerrors.TypePolicyFetch)
		}
		return
	}

	p.cache.Replace(policies)
	p.logger.Debug("policy refresh succeeded", logging.Int("count", len(policies)))
	p.signal()
}

func (p *Poller) fetchWithRetry(ctx context.Context) ([]policy.Policy, error) {
	cfg := retry.DefaultConfig()
	cfg.RetryableErrors = isTransient

	return retry.DoWithResult(ctx, cfg, func() ([]policy.Policy, error) {
		return p.fetch(ctx)
	})
}

func (p *Poller) fetch(ctx context.Context) ([]policy.Policy, error) {
	url := p.repoURL + "/policies?status=ENABLED"
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.TypePolicyFetch, "policy repository request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, xerrors.Wrap(
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
			xerrors.TypePolicyFetch,
			"policy repository returned an error",
		)
	}

	var decoded []policy.Policy
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(err, xerrors.TypePolicyDecode, "failed to decode policy repository response")
	}

	valid := make([]policy.Policy, 0, len(decoded))
	for _, pol := range decoded {
		if err := policy.Validate(pol); err != nil {
			p.logger.Warn("dropping invalid policy", logging.String("policy_id", pol.ID), logging.Error(err))
			if p.recorder != nil {
				p.recorder.RecordError(xerrors.TypePolicyDecode)
			}
			continue
		}
		if pol.Enabled() {
			valid = append(valid, pol)
		}
	}
	return valid, nil
}

func (p *Poller) signal() {
	if p.notify == nil {
		return
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// isTransient treats every non-nil fetch error, including non-2xx
// responses and decode failures, as retryable within one fetch cycle; the
// last error is surfaced to the caller once the cycle's retry budget or
// fetch timeout is exhausted.
func isTransient(err error) bool {
	return err != nil
}
