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

package switchmgr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MessageType names the minimal set of southbound messages this
// controller speaks: handshake, role advisory, flow install/delete, and
// keepalive. This is an OpenFlow-1.3-*shaped* protocol (match fields,
// action list, cookie, cookie mask) rather than a byte-exact OpenFlow
// parser — no fetchable OpenFlow wire-format library exists in the
// dependency pack this controller draws from.
type MessageType string

const (
	MsgHandshake    MessageType = "HANDSHAKE"
	MsgRoleAdvisory MessageType = "ROLE_ADVISORY"
	MsgFlowMod      MessageType = "FLOW_MOD"
	MsgFlowDelete   MessageType = "FLOW_DELETE"
	MsgEcho         MessageType = "ECHO"
)

// Role is the leadership role advised to a switch (spec.md §4.5).
type Role string

const (
	RoleMaster Role = "MASTER"
	RoleSlave  Role = "SLAVE"
)

// Match holds the IPv4 5-tuple-shaped fields this controller matches on.
// An empty Match matches every packet (used for the baseline rule).
type Match struct {
	IPv4Src string `json:"ipv4_src,omitempty"`
	IPv4Dst string `json:"ipv4_dst,omitempty"`
}

// Frame is the single wire message shape for every MessageType; fields
// unused by a given Type are omitted.
type Frame struct {
	Type       MessageType `json:"type"`
	DatapathID string      `json:"datapath_id,omitempty"`
	Role       Role        `json:"role,omitempty"`
	Priority   int         `json:"priority,omitempty"`
	Match      *Match      `json:"match,omitempty"`
	Actions    []string    `json:"actions,omitempty"`
	Cookie     uint64      `json:"cookie,omitempty"`
	CookieMask uint64      `json:"cookie_mask,omitempty"`
}

// maxFrameSize bounds a single frame to guard against a misbehaving or
// malicious peer claiming an unbounded length prefix.
const maxFrameSize = 1 << 20

// writeFrame writes f to w as a 4-byte big-endian length prefix followed
// by its JSON encoding.
func writeFrame(w io.Writer, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed JSON frame from r.
func readFrame(r io.Reader) (Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return Frame{}, fmt.Errorf("frame of %d bytes exceeds maximum %d", n, maxFrameSize)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
