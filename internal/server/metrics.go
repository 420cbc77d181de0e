package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

type OccupancySource interface {
	Occupancy(ctx context.Context) (parking.Occupancy, error)
}

// OccupancyCollector reads slot occupancy from the store on every scrape.
type OccupancyCollector struct {
	source  OccupancySource
	timeout time.Duration

	slots         *prometheus.Desc
	categorySlots *prometheus.Desc
	up            *prometheus.Desc
}

func NewOccupancyCollector(source OccupancySource) *OccupancyCollector {
	return &OccupancyCollector{
		source:  source,
		timeout: 5 * time.Second,
		slots: prometheus.NewDesc("parking_slots",
			"Number of slots by status.", []string{"status"}, nil),
		categorySlots: prometheus.NewDesc("parking_category_slots",
			"Number of slots by category and status.", []string{"category", "status"}, nil),
		up: prometheus.NewDesc("parking_slot_store_up",
			"Whether the last occupancy read from the slot store succeeded.", nil, nil),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slots
	ch <- c.categorySlots
	ch <- c.up
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	o, err := c.source.Occupancy(ctx)
	if err != nil {
		logging.Warn(ctx, "occupancy scrape failed", "error", err)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	emit := func(counts parking.StatusCounts, send func(status string, v float64)) {
		send(string(parking.StatusFree), float64(counts.Free))
		send(string(parking.StatusBooked), float64(counts.Booked))
		send(string(parking.StatusParked), float64(counts.Parked))
	}

	emit(o.StatusCounts, func(status string, v float64) {
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, v, status)
	})
	for category, counts := range o.ByCategory {
		emit(counts, func(status string, v float64) {
			ch <- prometheus.MustNewConstMetric(c.categorySlots, prometheus.GaugeValue, v, category, status)
		})
	}
}

// NewMetricsHandler serves runtime metrics plus slot occupancy.
func NewMetricsHandler(source OccupancySource) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewOccupancyCollector(source),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
