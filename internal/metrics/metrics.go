// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasktracker_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_logins_total",
			Help: "Total number of password login attempts.",
		},
		[]string{"result"},
	)

	OTPVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_otp_verifications_total",
			Help: "Total number of OTP verification attempts.",
		},
		[]string{"result"},
	)

	OTPEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_otp_emails_total",
			Help: "Total number of OTP emails handed to the mail relay.",
		},
		[]string{"result"},
	)

	TaskOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_task_operations_total",
			Help: "Total number of task mutations.",
		},
		[]string{"op", "result"},
	)

	registerOnce sync.Once
)

// MustRegister registers every collector on reg. Later calls are no-ops.
func MustRegister(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			RegistrationsTotal,
			LoginsTotal,
			OTPVerificationsTotal,
			OTPEmailsTotal,
			TaskOperationsTotal,
		)
	})
}

// Outcome maps an error to a result label.
func Outcome(err error) string {
	if err == nil {
		return ResultSuccess
	}
	return ResultFailure
}
