package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	RateLimitDecisions.WithLabelValues("test", "denied").Inc()
	if v := testutil.ToFloat64(RateLimitDecisions.WithLabelValues("test", "denied")); v < 1 {
		t.Fatalf("expected RateLimitDecisions >= 1, got %v", v)
	}

	AuthorizationVerdicts.WithLabelValues("test", "forbidden").Add(2)
	if v := testutil.ToFloat64(AuthorizationVerdicts.WithLabelValues("test", "forbidden")); v < 2 {
		t.Fatalf("expected AuthorizationVerdicts >= 2, got %v", v)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	EmailsProcessed.WithLabelValues("updated").Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "jobtracker_emails_processed_total") {
		t.Fatalf("expected emails metric in output")
	}
}
