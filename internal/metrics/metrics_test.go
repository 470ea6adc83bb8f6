package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/emav/pkg/models"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			match := true
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestObserveParse(t *testing.T) {
	m := New()

	m.ObserveParse(models.ParseDiagnostics{Tier: models.TierResilient}, nil)
	m.ObserveParse(models.ParseDiagnostics{Tier: models.TierResilient, PaddedValues: 3, SafetyBoundHit: true}, nil)
	m.ObserveParse(models.ParseDiagnostics{Tier: models.TierFallback}, nil)
	m.ObserveParse(models.ParseDiagnostics{}, errors.New("boom"))

	assert.Equal(t, 2.0, counterValue(t, m, "emav_parser_records_total", map[string]string{"tier": "resilient", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, m, "emav_parser_records_total", map[string]string{"tier": "fallback", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, m, "emav_parser_records_total", map[string]string{"outcome": "error"}))
	assert.Equal(t, 3.0, counterValue(t, m, "emav_parser_padded_values_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "emav_parser_safety_bound_hits_total", nil))
}

func TestObserveValidation(t *testing.T) {
	m := New()
	report := &models.ValidationReport{FRAC: models.AvailableMetric(0.97)}

	m.ObserveValidation("completed", 2*time.Second, report)
	m.ObserveValidation("failed", time.Second, nil)

	assert.Equal(t, 1.0, counterValue(t, m, "emav_validation_jobs_total", map[string]string{"status": "completed"}))
	assert.Equal(t, 1.0, counterValue(t, m, "emav_validation_jobs_total", map[string]string{"status": "failed"}))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveParse(models.ParseDiagnostics{Tier: models.TierResilient}, nil)
		m.ObserveValidation("completed", time.Second, nil)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveParse(models.ParseDiagnostics{Tier: models.TierFallback}, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "emav_parser_records_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
