package service

import "github.com/prometheus/client_golang/prometheus"

var authAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "auth_attempts_total", Help: "Auth operations by outcome"},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(authAttempts) }

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	authAttempts.WithLabelValues(op, result).Inc()
}
