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

// Package switchmgr implements the Switch Session Manager (spec.md
// §4.5): accepts switch connections on SWITCH_LISTEN_PORT, tracks each
// switch's identity, sends role advisories, and installs/removes rules
// on behalf of the Reconciler.
package switchmgr

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kube-zen/zt-controller/internal/logging"
	"github.com/kube-zen/zt-controller/internal/metrics"
	"github.com/kube-zen/zt-controller/internal/ratelimiter"
	"github.com/kube-zen/zt-controller/internal/rule"
	"github.com/kube-zen/zt-controller/internal/xerrors"
)

// BaselinePriority and BaselineCookie are the fixed shape of the
// handshake-time fallback rule: lowest priority, cookie 0, so the
// Reconciler's cookie-scoped cleanup never touches it (spec.md §4.5).
const (
	BaselinePriority = 1
	BaselineCookie   = 0
)

// CookieMaskAll selects every bit of the cookie for a cookie-scoped
// delete (spec.md §6 — "cookie mask for cleanup is all-ones").
const CookieMaskAll = ^uint64(0)

// ConnEvent reports a switch connecting or disconnecting, one of the
// four Reconciler input sources (spec.md §4.6).
type ConnEvent struct {
	DatapathID string
	Connected  bool
}

// connection is one live switch session.
type connection struct {
	datapathID string
	conn       net.Conn
	limiter    *ratelimiter.RateLimiter
	writeMu    sync.Mutex
}

func (c *connection) send(ctx context.Context, f Frame, rateLimited bool) error {
	if rateLimited && c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.conn, f)
}

// Manager accepts switch connections and exposes the Reconciler-facing
// operations: ListSwitches, InstallRule, DeleteByCookie.
type Manager struct {
	listener net.Listener

	mu          sync.RWMutex
	connections map[string]*connection

	leading   atomic.Bool
	events    chan<- ConnEvent
	recorder  *metrics.Recorder
	logger    *logging.Logger
	rateLimit int

	wg sync.WaitGroup
}

// New creates a Manager that will listen on addr (host:port). events, if
// non-nil, receives a ConnEvent for every connect/disconnect. rateLimit
// is the per-switch outbound writes/sec cap (ratelimiter.DefaultMaxPerSecond
// if <= 0).
func New(addr string, events chan<- ConnEvent, recorder *metrics.Recorder, rateLimit int) (*Manager, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.TypeSwitchConnect, "failed to listen for switch connections")
	}
	return &Manager{
		listener:    ln,
		connections: make(map[string]*connection),
		events:      events,
		recorder:    recorder,
		logger:      logging.NewLogger("switchmgr"),
		rateLimit:   rateLimit,
	}, nil
}

// Addr returns the listener's bound address (useful when addr was
// ":0" in tests).
func (m *Manager) Addr() net.Addr { return m.listener.Addr() }

// Run blocks, accepting connections until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		m.listener.Close()
	}()

	for {
		conn, err := m.listener.Accept()
		if err != nil {
			m.wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		m.wg.Add(1)
		go m.handle(ctx, conn)
	}
}

// SetLeader updates the advised role and broadcasts a ROLE_ADVISORY to
// every connected switch (spec.md §4.5 — "on every leadership
// transition").
func (m *Manager) SetLeader(ctx context.Context, leader bool) {
	m.leading.Store(leader)
	role := RoleSlave
	if leader {
		role = RoleMaster
	}

	for _, id := range m.ListSwitches() {
		m.mu.RLock()
		c, ok := m.connections[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if err := c.send(ctx, Frame{Type: MsgRoleAdvisory, Role: role}, false); err != nil {
			m.logger.Warn("role advisory failed", logging.String("switch", id), logging.Error(err))
		}
	}
}

// ListSwitches returns the sorted set of currently connected datapath
// ids.
func (m *Manager) ListSwitches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.connections))
	for id := range m.connections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// InstallRule issues a FLOW_MOD for r on switchID, rate-limited per
// switch (domain-stack reuse of golang.org/x/time/rate, SPEC_FULL.md
// §2.2/§4.5).
func (m *Manager) InstallRule(ctx context.Context, switchID string, r rule.Rule) error {
	c, ok := m.lookup(switchID)
	if !ok {
		return xerrors.New(xerrors.TypeSwitchWrite, fmt.Sprintf("switch %s not connected", switchID))
	}

	actions := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = string(a)
	}

	f := Frame{
		Type:     MsgFlowMod,
		Priority: r.Priority,
		Match:    &Match{IPv4Src: r.SrcIP, IPv4Dst: r.DstIP},
		Actions:  actions,
		Cookie:   r.Cookie,
	}
	if err := c.send(ctx, f, true); err != nil {
		if m.recorder != nil {
			m.recorder.RecordRuleInstallError(switchID)
		}
		return xerrors.Wrap(err, xerrors.TypeSwitchWrite, "flow-mod write failed")
	}
	if m.recorder != nil {
		m.recorder.RecordRuleInstall(switchID)
	}
	return nil
}

// DeleteByCookie issues a cookie-scoped FLOW_DELETE on switchID with an
// all-ones cookie mask, leaving cookie-0 baseline rules untouched
// (spec.md §4.5/§6).
func (m *Manager) DeleteByCookie(ctx context.Context, switchID string, cookie uint64) error {
	c, ok := m.lookup(switchID)
	if !ok {
		return xerrors.New(xerrors.TypeSwitchWrite, fmt.Sprintf("switch %s not connected", switchID))
	}

	f := Frame{
		Type:       MsgFlowDelete,
		Cookie:     cookie,
		CookieMask: CookieMaskAll,
	}
	if err := c.send(ctx, f, true); err != nil {
		return xerrors.Wrap(err, xerrors.TypeSwitchWrite, "flow-delete write failed")
	}
	return nil
}

func (m *Manager) lookup(switchID string) (*connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[switchID]
	return c, ok
}

func (m *Manager) handle(ctx context.Context, netConn net.Conn) {
	defer m.wg.Done()
	defer netConn.Close()

	hs, err := readFrame(netConn)
	if err != nil || hs.Type != MsgHandshake || hs.DatapathID == "" {
		m.logger.Warn("handshake failed, dropping connection", logging.Error(err))
		return
	}

	c := &connection{
		datapathID: hs.DatapathID,
		conn:       netConn,
		limiter:    ratelimiter.NewRateLimiter(m.rateLimit),
	}

	m.mu.Lock()
	m.connections[hs.DatapathID] = c
	count := len(m.connections)
	m.mu.Unlock()

	m.logger.Info("switch connected", logging.String("switch", hs.DatapathID))
	if m.recorder != nil {
		m.recorder.SetSwitchesConnected(count)
	}
	m.emit(ConnEvent{DatapathID: hs.DatapathID, Connected: true})

	baseline := Frame{
		Type:     MsgFlowMod,
		Priority: BaselinePriority,
		Match:    &Match{},
		Actions:  []string{"FORWARD_DEFAULT"},
		Cookie:   BaselineCookie,
	}
	if err := c.send(ctx, baseline, false); err != nil {
		m.logger.Warn("baseline rule install failed", logging.String("switch", hs.DatapathID), logging.Error(err))
	}

	role := RoleSlave
	if m.leading.Load() {
		role = RoleMaster
	}
	if err := c.send(ctx, Frame{Type: MsgRoleAdvisory, Role: role}, false); err != nil {
		m.logger.Warn("initial role advisory failed", logging.String("switch", hs.DatapathID), logging.Error(err))
	}

	m.readLoop(ctx, c)

	m.mu.Lock()
	delete(m.connections, hs.DatapathID)
	count = len(m.connections)
	m.mu.Unlock()

	m.logger.Info("switch disconnected", logging.String("switch", hs.DatapathID))
	if m.recorder != nil {
		m.recorder.SetSwitchesConnected(count)
	}
	m.emit(ConnEvent{DatapathID: hs.DatapathID, Connected: false})
}

func (m *Manager) readLoop(ctx context.Context, c *connection) {
	for {
		if ctx.Err() != nil {
			return
		}
		f, err := readFrame(c.conn)
		if err != nil {
			return
		}
		if f.Type == MsgEcho {
			_ = c.send(ctx, Frame{Type: MsgEcho}, false)
		}
	}
}

func (m *Manager) emit(evt ConnEvent) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- evt:
	default:
	}
}

// Close stops accepting new connections; in-flight sessions end on
// their own read error once the remote side closes.
func (m *Manager) Close() error {
	return m.listener.Close()
}
