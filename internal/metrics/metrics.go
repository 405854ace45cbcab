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

// Package metrics records the controller's Prometheus series (spec.md
// §2.1 expansion): reconciliation counts/durations, rule install outcomes,
// connected switch count, and categorized error counts.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the process-wide Prometheus registry, served over
// /metrics by internal/httpserver. Unlike the teacher's
// controller-runtime metrics.Registry, this is a plain
// prometheus.NewRegistry() — there is no manager runtime registering its
// own collectors into it.
var Registry = prometheus.NewRegistry()

// Recorder records metrics for the controller.
type Recorder struct {
	componentName string

	reconciliationsTotal   *prometheus.CounterVec
	reconciliationsDuration *prometheus.HistogramVec

	ruleInstallsTotal      *prometheus.CounterVec
	ruleInstallErrorsTotal *prometheus.CounterVec

	switchesConnected prometheus.Gauge

	errorsTotal *prometheus.CounterVec
}

var (
	collectorsRegistered bool
	collectorsMu         sync.Mutex
)

// NewRecorder creates a new metrics recorder for a component.
func NewRecorder(componentName string) *Recorder {
	recorder := &Recorder{
		componentName: componentName,
	}

	collectorsMu.Lock()
	if !collectorsRegistered {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collectorsRegistered = true
	}
	collectorsMu.Unlock()

	constLabels := prometheus.Labels{"component": componentName}

	recorder.reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "zt_reconciliations_total",
			Help:        "Total number of reconciliation passes",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // "success", "error"
	)

	recorder.reconciliationsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "zt_reconciliation_duration_seconds",
			Help:        "Duration of reconciliation passes in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to 512ms
		},
		[]string{"result"},
	)

	recorder.ruleInstallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "zt_rule_installs_total",
			Help:        "Total number of rule install attempts sent to switches",
			ConstLabels: constLabels,
		},
		[]string{"switch_id"},
	)

	recorder.ruleInstallErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "zt_rule_install_errors_total",
			Help:        "Total number of rule install failures",
			ConstLabels: constLabels,
		},
		[]string{"switch_id"},
	)

	recorder.switchesConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "zt_switches_connected",
			Help:        "Current number of switches with an established control session",
			ConstLabels: constLabels,
		},
	)

	recorder.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "zt_errors_total",
			Help:        "Total number of categorized errors",
			ConstLabels: constLabels,
		},
		[]string{"type"},
	)

	Registry.MustRegister(
		recorder.reconciliationsTotal,
		recorder.reconciliationsDuration,
		recorder.ruleInstallsTotal,
		recorder.ruleInstallErrorsTotal,
		recorder.switchesConnected,
		recorder.errorsTotal,
	)

	return recorder
}

// RecordReconciliation records a reconciliation attempt.
func (r *Recorder) RecordReconciliation(result string, durationSeconds float64) {
	r.reconciliationsTotal.WithLabelValues(result).Inc()
	r.reconciliationsDuration.WithLabelValues(result).Observe(durationSeconds)
}

// RecordError records a categorized error.
func (r *Recorder) RecordError(errorType string) {
	r.errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordReconciliationSuccess is a convenience method for successful reconciliations.
func (r *Recorder) RecordReconciliationSuccess(durationSeconds float64) {
	r.RecordReconciliation("success", durationSeconds)
}

// RecordReconciliationError is a convenience method for failed reconciliations.
func (r *Recorder) RecordReconciliationError(durationSeconds float64) {
	r.RecordReconciliation("error", durationSeconds)
	r.RecordError("reconciliation")
}

// RecordRuleInstall records one rule-install attempt against switchID.
func (r *Recorder) RecordRuleInstall(switchID string) {
	r.ruleInstallsTotal.WithLabelValues(switchID).Inc()
}

// RecordRuleInstallError records one failed rule-install attempt against switchID.
func (r *Recorder) RecordRuleInstallError(switchID string) {
	r.ruleInstallErrorsTotal.WithLabelValues(switchID).Inc()
	r.RecordError("rule_install")
}

// SetSwitchesConnected sets the current connected-switch gauge.
func (r *Recorder) SetSwitchesConnected(n int) {
	r.switchesConnected.Set(float64(n))
}
