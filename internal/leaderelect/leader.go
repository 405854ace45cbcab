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

// Package leader wraps client-go's generic leader election over a Lease
// against the coordination service, translating its callback-based API
// into Transition messages the Reconciler consumes from a channel
// (spec.md §4.1, design note §9): leadership is modeled as state with
// entry/exit transitions delivered as messages, never as a function the
// caller must block inside to remain leader.
package leader

import (
	"context"
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/kube-zen/zt-controller/internal/backoff"
)

// TransitionKind distinguishes becoming leader from losing/never holding
// leadership.
type TransitionKind int

const (
	// BecameLeader is sent once this process starts leading.
	BecameLeader TransitionKind = iota
	// BecameFollower is sent on startup (not yet leading), on losing a
	// held lease, and while the coordination service is unreachable.
	BecameFollower
)

// Transition is one leadership state change, delivered on Client.Transitions().
type Transition struct {
	Kind TransitionKind
}

// Config configures the Leader Election Client.
type Config struct {
	// LockName is derived from LEADER_ELECTION_PATH.
	LockName string
	// Namespace is the namespace the Lease object lives in.
	Namespace string
	// Identity uniquely identifies this process (pod name, typically).
	Identity string
	// LeaseDuration, RenewDeadline, RetryPeriod follow client-go's usual
	// leader election timing contract.
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration
}

// DefaultConfig returns client-go's conventional leader election timings.
func DefaultConfig(lockName, namespace, identity string) Config {
	return Config{
		LockName:      lockName,
		Namespace:     namespace,
		Identity:      identity,
		LeaseDuration: 15 * time.Second,
		RenewDeadline: 10 * time.Second,
		RetryPeriod:   2 * time.Second,
	}
}

// Client drives leader election against the coordination service and
// reports transitions on a channel.
type Client struct {
	config      Config
	clientset   kubernetes.Interface
	transitions chan Transition
}

// NewClient creates a Leader Election Client. clientset is the
// coordination-service REST client (a Lease-API-compatible endpoint,
// reached via the same rest.Config plumbing the rest of the controller
// uses).
func NewClient(config Config, clientset kubernetes.Interface) *Client {
	return &Client{
		config:      config,
		clientset:   clientset,
		transitions: make(chan Transition, 4),
	}
}

// Transitions returns the channel the Reconciler reads leadership state
// changes from.
func (c *Client) Transitions() <-chan Transition {
	return c.transitions
}

// Run blocks, driving leader election until ctx is canceled. It reports
// BecameFollower immediately (not yet leading), then BecameLeader/
// BecameFollower as the underlying LeaderElector's callbacks fire. On a
// pre-election transport failure (the coordination service cannot be
// dialed at all) Run applies an unbounded 1s→30s backoff before retrying,
// matching spec.md §4.1's "the client keeps retrying forever".
func (c *Client) Run(ctx context.Context) error {
	c.emit(BecameFollower)

	bo := backoff.NewBackoff(backoff.ReconnectConfig())
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lock, err := c.newLock()
		if err != nil {
			return fmt.Errorf("building resource lock: %w", err)
		}

		elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:          lock,
			LeaseDuration: c.config.LeaseDuration,
			RenewDeadline: c.config.RenewDeadline,
			RetryPeriod:   c.config.RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(context.Context) {
					c.emit(BecameLeader)
				},
				OnStoppedLeading: func() {
					c.emit(BecameFollower)
				},
			},
			ReleaseOnCancel: true,
		})
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(bo.Next()):
			}
			continue
		}

		bo.Reset()
		// Run blocks until ctx is canceled or the elector hits an
		// unrecoverable error talking to the coordination service; either
		// way control returns here and we re-dial with backoff.
		elector.Run(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.emit(BecameFollower)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.Next()):
		}
	}
}

func (c *Client) newLock() (*resourcelock.LeaseLock, error) {
	return &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      c.config.LockName,
			Namespace: c.config.Namespace,
		},
		Client: c.clientset.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: c.config.Identity,
		},
	}, nil
}

func (c *Client) emit(kind TransitionKind) {
	select {
	case c.transitions <- Transition{Kind: kind}:
	default:
		// Reconciler falling behind on a buffered channel of depth 4 would
		// mean it's stuck on something else entirely; drop rather than
		// block the election loop.
	}
}

// RequirePodNamespace returns the pod namespace from the environment or
// the service account namespace file, hard-failing if neither is set —
// leader election cannot proceed without a namespace for its Lease.
func RequirePodNamespace() (string, error) {
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns, nil
	}
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		if ns := string(data); ns != "" {
			return ns, nil
		}
	}
	return "", fmt.Errorf("POD_NAMESPACE environment variable must be set or service account namespace file must be readable")
}

// PodIdentity returns a stable identity for this process's leader
// election candidacy: POD_NAME if set, else HOSTNAME.
func PodIdentity() (string, error) {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name, nil
	}
	if name := os.Getenv("HOSTNAME"); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("POD_NAME or HOSTNAME environment variable not set")
}
