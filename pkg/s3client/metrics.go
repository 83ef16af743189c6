// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package s3client

import (
	"github.com/ayoung19/instant/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OpsTotal tracks store calls by operation and outcome.
	OpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "instant",
		Subsystem: "s3client",
		Name:      "ops_total",
		Help:      "Total object store calls",
	}, []string{"op", "outcome"}) // op: "put", "head", "delete", "delete_batch", "list", "presign"
)

func init() {
	debug.Registry().MustRegister(OpsTotal)
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OpsTotal.WithLabelValues(op, outcome).Inc()
}
