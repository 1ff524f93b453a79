package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales recorded",
	})

	SalesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_rejected_total",
		Help: "Total number of rejected sales",
	}, []string{"reason"})

	SalesRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_revenue_total",
		Help: "Sum of total_amount over recorded sales",
	})

	UnitsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "units_sold_total",
		Help: "Total number of units sold",
	})

	StockReceiptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_receipts_total",
		Help: "Total number of stock entries recorded",
	})

	StockReceiptsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_receipts_failed_total",
		Help: "Total number of failed stock receipts",
	}, []string{"reason"})

	UnitsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "units_received_total",
		Help: "Total number of units received into stock",
	})

	StockTxLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_tx_latency_seconds",
		Help:    "Latency of stock transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	DashboardDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_degraded_total",
		Help: "Total number of dashboard builds that fell back to empty output",
	})

	LowStockEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_events_total",
		Help: "Total number of inventory events leaving a product at or below the low stock threshold",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
