/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "issuewise_github_ratelimit_remaining",
		Help: "Requests remaining in the most recently observed GitHub rate-limit window.",
	})
	mResetTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "issuewise_github_ratelimit_reset_timestamp_seconds",
		Help: "Epoch second at which the most recently observed window resets.",
	})
	mWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issuewise_github_ratelimit_waits_total",
		Help: "Number of times a caller was suspended waiting for a window reset.",
	}, []string{"reason"})
	mWaitSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issuewise_github_ratelimit_wait_seconds_total",
		Help: "Cumulative time callers spent suspended waiting for a window reset.",
	}, []string{"reason"})
)

func observe(s State) {
	mRemaining.Set(float64(s.Remaining))
	mResetTime.Set(float64(s.ResetAt.Unix()))
}

func recordWait(reason string, d time.Duration) {
	mWaits.WithLabelValues(reason).Inc()
	mWaitSeconds.WithLabelValues(reason).Add(d.Seconds())
}
