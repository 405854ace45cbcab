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

package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRule_IsDrop(t *testing.T) {
	drop := Rule{SrcIP: "10.0.0.1", DstIP: "10.0.0.2"}
	assert.True(t, drop.IsDrop())

	allow := Rule{
		SrcIP:   "10.0.0.1",
		DstIP:   "10.0.0.2",
		Actions: []Action{"FORWARD"},
	}
	assert.False(t, allow.IsDrop())
}

func TestRule_KeyOf(t *testing.T) {
	r1 := Rule{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Priority: 100}
	r2 := Rule{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Priority: 100, Cookie: SentinelCookie}

	assert.Equal(t, r1.KeyOf(), r2.KeyOf(), "Cookie must not participate in Key identity")

	r3 := Rule{SrcIP: "10.0.0.1", DstIP: "10.0.0.3", Priority: 100}
	assert.NotEqual(t, r1.KeyOf(), r3.KeyOf())
}

func TestRule_KeyOf_WildcardMatch(t *testing.T) {
	r := Rule{SrcIP: "1.2.3.4/32", DstIP: "0.0.0.0/0", Priority: 65000}
	assert.Equal(t, Key{SrcIP: "1.2.3.4/32", DstIP: "0.0.0.0/0", Priority: 65000}, r.KeyOf())
}

func TestSentinelCookie_Value(t *testing.T) {
	assert.Equal(t, uint64(0xDEADBEEF), SentinelCookie)
}
