package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	AuthCodesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_oauth_codes_issued_total",
		Help: "Total number of authorization codes issued.",
	})
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_oauth_tokens_issued_total",
		Help: "Total number of access tokens minted by code exchange.",
	})
	ExchangeRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_oauth_exchange_rejected_total",
		Help: "Code exchanges refused, by reason.",
	}, []string{"reason"})
	ClientsRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_oauth_clients_registered_total",
		Help: "Total number of dynamically registered clients.",
	})
	APIKeyAuthTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_apikey_auth_total",
		Help: "API key authentication attempts, by result.",
	}, []string{"result"})
	ToolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_tool_calls_total",
		Help: "Tool gateway invocations, by tool and outcome.",
	}, []string{"tool", "outcome"})
	StreamSubscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskboard_stream_subscribers",
		Help: "Current number of connected task stream subscribers.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_logins_success_total",
		Help: "Total number of successful interactive logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_logins_failure_total",
		Help: "Total number of failed interactive logins.",
	})
	SweptRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_swept_rows_total",
		Help: "Expired rows removed by the sweeper, by kind.",
	}, []string{"kind"})
)

// InitCustomMetrics registers the collectors above with reg.
// It should be called once at application startup. Collectors work unregistered, so tests skip it.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}
	collectors := map[string]prometheus.Collector{
		"AuthCodesIssuedTotal":   AuthCodesIssuedTotal,
		"TokensIssuedTotal":      TokensIssuedTotal,
		"ExchangeRejectedTotal":  ExchangeRejectedTotal,
		"ClientsRegisteredTotal": ClientsRegisteredTotal,
		"APIKeyAuthTotal":        APIKeyAuthTotal,
		"ToolCallsTotal":         ToolCallsTotal,
		"StreamSubscribersGauge": StreamSubscribersGauge,
		"LoginSuccessTotal":      LoginSuccessTotal,
		"LoginFailureTotal":      LoginFailureTotal,
		"SweptRowsTotal":         SweptRowsTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
