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

// Command zt-controller runs the Zero-Trust SDN Policy Reconciliation
// Controller: it watches pods, polls the policy repository, and drives
// switch flow tables toward the desired deny set for as long as it holds
// leadership (spec.md §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/kube-zen/zt-controller/internal/config"
	"github.com/kube-zen/zt-controller/internal/health"
	"github.com/kube-zen/zt-controller/internal/httpclient"
	"github.com/kube-zen/zt-controller/internal/httpserver"
	"github.com/kube-zen/zt-controller/internal/kube"
	leader "github.com/kube-zen/zt-controller/internal/leaderelect"
	"github.com/kube-zen/zt-controller/internal/lifecycle"
	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/metrics"
	"github.com/kube-zen/zt-controller/internal/observability"
	"github.com/kube-zen/zt-controller/internal/orchestrator"
	"github.com/kube-zen/zt-controller/internal/podindex"
	"github.com/kube-zen/zt-controller/internal/policycache"
	"github.com/kube-zen/zt-controller/internal/policypoller"
	"github.com/kube-zen/zt-controller/internal/reconciler"
	"github.com/kube-zen/zt-controller/internal/switchmgr"
)

const component = "zt-controller"

func main() {
	if err := run(); err != nil {
		logging.NewLogger(component).Error(err, "zt-controller exited with error")
		os.Exit(1)
	}
}

func run() error {
	logger := logging.NewLogger(component)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	shutdownTracing, err := observability.Init(context.Background(), observability.DefaultConfig(component))
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, cancel := lifecycle.ShutdownContext(context.Background(), component)
	defer cancel()

	clientset, err := kube.NewClientset()
	if err != nil {
		return fmt.Errorf("building kubernetes clientset: %w", err)
	}

	identity, err := leader.PodIdentity()
	if err != nil {
		return fmt.Errorf("determining pod identity: %w", err)
	}

	recorder := metrics.NewRecorder(component)

	podIndex := podindex.NewIndex()
	policyCache := policycache.New()

	podEvents := make(chan struct{}, 1)
	policyEvents := make(chan struct{}, 1)
	switchEvents := make(chan switchmgr.ConnEvent, 16)

	switchAddr := fmt.Sprintf(":%d", cfg.SwitchListenPort)
	switches, err := switchmgr.New(switchAddr, switchEvents, recorder, 0)
	if err != nil {
		return fmt.Errorf("starting switch session manager listener: %w", err)
	}
	defer func() { _ = switches.Close() }()

	watcher := orchestrator.New(clientset, podIndex, podEvents, recorder)

	httpClient := httpclient.NewClient(httpclient.DefaultClientConfig())
	defer httpClient.CloseIdleConnections()

	leaderClient := leader.NewClient(
		leader.DefaultConfig(cfg.LeaderElectionPath, cfg.PodNamespace, identity),
		clientset,
	)

	var isLeaderMu sync.RWMutex
	var isLeader bool
	isLeaderFn := func() bool {
		isLeaderMu.RLock()
		defer isLeaderMu.RUnlock()
		return isLeader
	}

	poller := policypoller.New(httpClient, cfg.DatabaseURL, cfg.PolicyPollInterval, policyCache, recorder, isLeaderFn, policyEvents)

	rec := reconciler.New(podIndex, policyCache, switches, recorder)
	rec.RefreshPolicies = func(ctx context.Context) error {
		poller.Trigger(ctx)
		return nil
	}

	checker := health.NewCompositeChecker(
		health.NewBoolChecker("pod-watch-synced", watcher.Synced),
		health.NewBoolChecker("policy-cache-synced", policyCache.Synced),
	)
	srv := httpserver.New(cfg.HealthAddr, checker)

	var wg sync.WaitGroup
	runLoop := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && err != context.Canceled {
				logger.Warn(name+" stopped", logging.Error(err))
			}
		}()
	}

	runLoop("pod watcher", watcher.Run)
	runLoop("policy poller", poller.Run)
	runLoop("switch session manager", switches.Run)
	runLoop("reconciler", rec.Run)
	runLoop("leader election client", leaderClient.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("http server stopped", logging.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-leaderClient.Transitions():
				if !ok {
					return
				}
				isLeaderMu.Lock()
				isLeader = t.Kind == leader.BecameLeader
				isLeaderMu.Unlock()
				rec.NotifyLeaderTransition(ctx, isLeader)
				logger.Info("leadership transition observed", logging.Bool("leader", isLeader))
			}
		}
	}()

	wg.Add(1)
	go bridge(ctx, &wg, podEvents, rec.NotifyPodEvent)
	wg.Add(1)
	go bridge(ctx, &wg, policyEvents, rec.NotifyPolicyRefresh)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-switchEvents:
				if !ok {
					return
				}
				recorder.SetSwitchesConnected(len(switches.ListSwitches()))
				logger.Info("switch connection event",
					logging.String("datapath_id", evt.DatapathID),
					logging.Bool("connected", evt.Connected))
				rec.NotifySwitchConnection()
			}
		}
	}()

	lifecycle.WaitForShutdown(ctx, component, func() {
		_ = lifecycle.ShutdownHTTPServer(context.Background(), srv, component, lifecycle.DefaultShutdownTimeout)
	})
	wg.Wait()
	return nil
}

// bridge forwards a "something changed" signal (producers send on a
// channel buffered with capacity 1) into a
// Reconciler notify method, decoupling producers (Orchestrator Watcher,
// Policy Poller) from the Reconciler's own types.
func bridge(ctx context.Context, wg *sync.WaitGroup, ch <-chan struct{}, notify func()) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			notify()
		}
	}
}
