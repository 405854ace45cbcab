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

// Package orchestrator watches the cluster-wide pod event stream
// (spec.md §4.2) and normalizes it into Pod Index upserts/removals. It
// wraps client-go's CoreV1().Pods("").Watch, restarting the stream with
// an unbounded reconnect backoff on error or closure.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/kube-zen/zt-controller/internal/backoff"
	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/metrics"
	"github.com/kube-zen/zt-controller/internal/podindex"
	"github.com/kube-zen/zt-controller/internal/xerrors"
)

// EventKind mirrors the three watch event types the Pod Index consumes.
type EventKind int

const (
	EventAdded EventKind = iota
	EventModified
	EventDeleted
)

// Event is the normalized pod event shape. The Watcher applies watch
// events to the Pod Index directly without building Event values; the
// Reconciler receives only a change signal.
type Event struct {
	Kind   EventKind
	IP     string
	Labels map[string]string
	Node   string
}

// Watcher subscribes to the cluster pod watch and applies normalized
// events directly to a Pod Index, signaling the Reconciler on every
// applied event.
type Watcher struct {
	clientset kubernetes.Interface
	index     *podindex.Index
	notify    chan<- struct{}
	recorder  *metrics.Recorder
	logger    *logging.Logger
	synced    atomic.Bool
}

// Synced reports whether the pod watch stream has been established at
// least once, for readiness reporting.
func (w *Watcher) Synced() bool {
	return w.synced.Load()
}

// New creates a Watcher that applies events to index and signals notify
// (typically the Reconciler's workqueue "reconcile" key) after each one.
func New(clientset kubernetes.Interface, index *podindex.Index, notify chan<- struct{}, recorder *metrics.Recorder) *Watcher {
	return &Watcher{
		clientset: clientset,
		index:     index,
		notify:    notify,
		recorder:  recorder,
		logger:    logging.NewLogger("orchestrator"),
	}
}

// Run blocks, watching pods until ctx is cancelled. Stream errors and
// closures are retried with an unbounded 1s-to-30s backoff (spec.md
// §4.2); ctx cancellation returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	bo := backoff.NewBackoff(backoff.ReconnectConfig())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.watchOnce(ctx); err != nil {
			w.logger.Warn("pod watch stream ended", logging.Error(err))
			if w.recorder != nil {
				w.recorder.RecordError(xerrors.TypePodWatchFailed)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(bo.Next()):
			}
			continue
		}

		bo.Reset()
	}
}

func (w *Watcher) watchOnce(ctx context.Context) error {
	watcher, err := w.clientset.CoreV1().Pods("").Watch(ctx, metav1.ListOptions{})
	if err != nil {
		return xerrors.Wrap(err, xerrors.TypePodWatchFailed, "failed to start pod watch")
	}
	defer watcher.Stop()
	w.synced.Store(true)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.ResultChan():
			if !ok {
				return fmt.Errorf("pod watch channel closed")
			}
			w.apply(evt)
		}
	}
}

func (w *Watcher) apply(evt watch.Event) {
	pod, ok := evt.Object.(*corev1.Pod)
	if !ok {
		return
	}

	switch evt.Type {
	case watch.Added, watch.Modified:
		if pod.Status.PodIP == "" {
			// Not yet scheduled an IP; spec.md §4.2 drops events with no
			// status.podIP rather than indexing a pod under an empty key.
			return
		}
		w.index.Upsert(pod.Status.PodIP, pod.Labels, pod.Spec.NodeName)
	case watch.Deleted:
		if pod.Status.PodIP != "" {
			w.index.Remove(pod.Status.PodIP)
		}
	default:
		return
	}

	w.signal()
}

func (w *Watcher) signal() {
	if w.notify == nil {
		return
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

