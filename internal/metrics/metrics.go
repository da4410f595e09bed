package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillbot_orders_created_total",
		Help: "Total number of orders successfully created.",
	})

	RepliesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillbot_replies_rejected_total",
		Help: "Total number of worker replies declined by the admission filter.",
	},
		[]string{"reason"},
	)

	RepliesAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillbot_replies_accepted_total",
		Help: "Total number of worker replies accepted for an order.",
	})

	PhotosCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillbot_photos_collected_total",
		Help: "Total number of new photos merged into orders.",
	})

	PhotosDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillbot_photos_delivered_total",
		Help: "Total number of photos successfully sent to a destination.",
	})

	PhotosFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillbot_photos_failed_total",
		Help: "Total number of photos that exhausted delivery retries.",
	})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillbot_deliveries_total",
		Help: "Total number of delivery runs by outcome.",
	},
		[]string{"result"},
	)

	OrderLocksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fulfillbot_order_locks_active",
		Help: "Current number of per-order collection locks ever created.",
	})
)
