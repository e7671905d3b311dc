package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultgate_payments_total",
		Help: "The total number of payment authorizations processed",
	}, []string{"status"})

	DeclinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultgate_declines_total",
		Help: "Total declined or rejected authorizations by reason",
	}, []string{"reason"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	VaultsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultgate_vaults_total",
		Help: "Total number of credit vaults created",
	})

	CollateralTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultgate_collateral_units_total",
		Help: "Aggregate collateral held in custody (base units)",
	})

	OutstandingTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultgate_outstanding_units_total",
		Help: "Aggregate outstanding balance across all vaults (base units)",
	})

	InterestAccrued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultgate_interest_accrued_units_total",
		Help: "Cumulative interest accrued across all vaults (base units)",
	})
)
