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

package logging

import (
	"time"

	"go.uber.org/zap"
)

// Field is a zap.Field for backward compatibility and convenience
type Field = zap.Field

// Standard field helpers shared across the controller's components.

// TraceID creates a trace_id field (W3C TraceContext)
func TraceID(id string) zap.Field {
	return zap.String("trace_id", id)
}

// SpanID creates a span_id field (W3C TraceContext)
func SpanID(id string) zap.Field {
	return zap.String("span_id", id)
}

// Operation creates an operation field
func Operation(op string) zap.Field {
	return zap.String("operation", op)
}

// HTTPMethod creates an http_method field
func HTTPMethod(method string) zap.Field {
	return zap.String("http_method", method)
}

// HTTPPath creates an http_path field
func HTTPPath(path string) zap.Field {
	return zap.String("http_path", path)
}

// HTTPStatus creates an http_status field
func HTTPStatus(status int) zap.Field {
	return zap.Int("http_status", status)
}

// Latency creates a latency_ms field from a duration
func Latency(d time.Duration) zap.Field {
	return zap.Int64("latency_ms", d.Milliseconds())
}

// ErrorCode creates an error_code field
func ErrorCode(code string) zap.Field {
	return zap.String("error_code", code)
}

// RemoteAddr creates a remote_addr field
func RemoteAddr(addr string) zap.Field {
	return zap.String("remote_addr", addr)
}

// Component creates a component field
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// Namespace creates a namespace field (Kubernetes pod namespace)
func Namespace(ns string) zap.Field {
	return zap.String("namespace", ns)
}

// Pod creates a pod field (Kubernetes pod name)
func Pod(pod string) zap.Field {
	return zap.String("pod", pod)
}

// Node creates a node field (Kubernetes node name)
func Node(node string) zap.Field {
	return zap.String("node", node)
}

// RetryCount creates a retry_count field
func RetryCount(count int) zap.Field {
	return zap.Int("retry_count", count)
}

// SwitchID creates a switch_id field (datapath identifier)
func SwitchID(id string) zap.Field {
	return zap.String("switch_id", id)
}

// PolicyName creates a policy_name field
func PolicyName(name string) zap.Field {
	return zap.String("policy_name", name)
}

// Cookie creates a cookie field, formatted the way installed-rule cookies
// are compared: a plain uint64.
func Cookie(cookie uint64) zap.Field {
	return zap.Uint64("cookie", cookie)
}

// RuleCount creates a rule_count field
func RuleCount(n int) zap.Field {
	return zap.Int("rule_count", n)
}

// String creates a custom string field
func String(key, value string) zap.Field {
	return zap.String(key, value)
}

// Int creates a custom int field
func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Int64 creates a custom int64 field
func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

// Bool creates a custom bool field
func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

// Duration creates a custom duration field, stored as milliseconds
func Duration(key string, value time.Duration) zap.Field {
	return zap.Int64(key, value.Milliseconds())
}

// Strings creates a custom string slice field
func Strings(key string, values []string) zap.Field {
	return zap.Strings(key, values)
}

// Error creates an error field
func Error(err error) zap.Field {
	return zap.Error(err)
}
