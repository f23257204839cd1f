package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterUptime registers bot_uptime_seconds, counted from startedAt, and bot_build_info on reg.
// Registering twice on the same registry fails.
func RegisterUptime(reg prometheus.Registerer, startedAt time.Time, version, service string) error {
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bot_uptime_seconds",
		Help: "Seconds since the bot process started",
	}, func() float64 { return time.Since(startedAt).Seconds() })
	if err := reg.Register(uptime); err != nil {
		return err
	}

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "bot_build_info",
		Help:        "Build metadata, always 1",
		ConstLabels: prometheus.Labels{"version": version, "service": service},
	})
	info.Set(1)
	if err := reg.Register(info); err != nil {
		reg.Unregister(uptime)
		return err
	}
	return nil
}
