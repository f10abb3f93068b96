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

package restaurant

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "service",
			Name:      "requests_total",
			Help:      "The number of requests served, by server and request kind",
		}, []string{"server", "kind"})

	waitlistLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "restaurant",
			Subsystem: "reception",
			Name:      "waitlist_length",
			Help:      "The number of groups waiting for a table",
		})

	pendingOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "restaurant",
			Subsystem: "waiter",
			Name:      "pending_orders",
			Help:      "The number of food orders the waiter holds back while the chef is busy",
		})

	cookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "restaurant",
			Subsystem: "kitchen",
			Name:      "cook_duration_seconds",
			Help:      "Bucketed histogram of the time the chef spent cooking one order",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20),
		})
)

// InitMetrics registers all metrics in this file.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(requestsServed)
	registry.MustRegister(waitlistLength)
	registry.MustRegister(pendingOrders)
	registry.MustRegister(cookDuration)
}
