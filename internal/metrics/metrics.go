package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal counts finished transfers by terminal status.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfers by terminal status.",
	}, []string{"status"})

	// TransferFailures counts failed transfers by failure reason.
	TransferFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfer_failures_total",
		Help: "Failed transfers by reason.",
	}, []string{"reason"})

	// CompensationFailures counts transfers left inconsistent after a
	// failed compensation. Any non-zero value needs operator attention.
	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_compensation_failures_total",
		Help: "Transfers whose compensating credit failed.",
	})

	// NotificationsTotal counts notification delivery outcomes by channel.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_notifications_total",
		Help: "Notification delivery outcomes by channel and status.",
	}, []string{"channel", "status"})
)
