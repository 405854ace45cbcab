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

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPolicy() Policy {
	return Policy{
		ID:          "p1",
		Name:        "deny-db-from-web",
		Priority:    DefaultPriority,
		Source:      Selector{LabelSelector: map[string]string{"role": "web"}},
		Destination: Selector{LabelSelector: map[string]string{"role": "db"}},
		Service:     []Service{{Protocol: ProtocolTCP, Port: 5432}},
		Action:      ActionDeny,
		Status:      StatusEnabled,
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate(validPolicy()))
}

func TestValidate_EmptyID(t *testing.T) {
	p := validPolicy()
	p.ID = ""
	assert.Error(t, Validate(p))
}

func TestValidate_NegativePriority(t *testing.T) {
	p := validPolicy()
	p.Priority = -1
	assert.Error(t, Validate(p))
}

func TestValidate_BadAction(t *testing.T) {
	p := validPolicy()
	p.Action = "MAYBE"
	assert.Error(t, Validate(p))
}

func TestValidate_BadStatus(t *testing.T) {
	p := validPolicy()
	p.Status = "UNKNOWN"
	assert.Error(t, Validate(p))
}

func TestValidate_BadIPBlock(t *testing.T) {
	p := validPolicy()
	p.Source = Selector{IPBlock: "not-a-cidr"}
	assert.Error(t, Validate(p))
}

func TestValidate_ValidIPBlock(t *testing.T) {
	p := validPolicy()
	p.Source = Selector{IPBlock: "10.0.0.0/24"}
	assert.NoError(t, Validate(p))
}

func TestValidate_BadServiceProtocol(t *testing.T) {
	p := validPolicy()
	p.Service = []Service{{Protocol: "SCTP"}}
	assert.Error(t, Validate(p))
}

func TestValidate_ServicePortOutOfRange(t *testing.T) {
	p := validPolicy()
	p.Service = []Service{{Protocol: ProtocolTCP, Port: 70000}}
	assert.Error(t, Validate(p))
}

func TestValidate_ServicePortZeroAllowed(t *testing.T) {
	p := validPolicy()
	p.Service = []Service{{Protocol: ProtocolICMP, Port: 0}}
	assert.NoError(t, Validate(p))
}

func TestPolicy_Enabled(t *testing.T) {
	p := validPolicy()
	assert.True(t, p.Enabled())
	p.Status = StatusDisabled
	assert.False(t, p.Enabled())
}

func TestSelector_ToPodIndexSelector(t *testing.T) {
	s := Selector{LabelSelector: map[string]string{"role": "web"}, IPBlock: "10.0.0.0/24"}
	pis := s.ToPodIndexSelector()
	assert.Equal(t, s.LabelSelector, pis.LabelSelector)
	assert.Equal(t, s.IPBlock, pis.IPBlock)
}
