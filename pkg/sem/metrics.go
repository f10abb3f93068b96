// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package sem

import "github.com/prometheus/client_golang/prometheus"

var (
	opsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "semaphore",
			Name:      "operations_total",
			Help:      "The number of completed semaphore operations",
		}, []string{"kind", "action"})

	blockedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "restaurant",
			Subsystem: "semaphore",
			Name:      "blocked_actors",
			Help:      "The number of actors blocked in a down operation",
		}, []string{"kind"})

	waitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "restaurant",
			Subsystem: "semaphore",
			Name:      "wait_duration_seconds",
			Help:      "Bucketed histogram of the time spent in a down operation",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20), // 10us ~ 5s
		}, []string{"kind"})
)

// InitMetrics registers all metrics in this file.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(opsCounter)
	registry.MustRegister(blockedGauge)
	registry.MustRegister(waitDuration)
}
