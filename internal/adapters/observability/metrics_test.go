package observability_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uni_directory/internal/adapters/observability"
	"uni_directory/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors are exported
	observability.ObserveHTTP("/v1/universities", "GET", 200, 12*time.Millisecond)
	observability.ObserveStore("memory", "get_all", "universities", nil)
	observability.ObserveComparison("add")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"unidir_http_requests_total", "unidir_store_operations_total", "unidir_comparison_events_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestLabelErr(t *testing.T) {
	cases := map[string]error{
		"ok":        nil,
		"not_found": fmt.Errorf("faculties 3: %w", domain.ErrNotFound),
		"invalid":   domain.ErrInvalidRecord,
		"conflict":  domain.ErrConflict,
		"error":     errors.New("boom"),
	}
	for want, err := range cases {
		if got := observability.LabelErr(err); got != want {
			t.Fatalf("LabelErr(%v) = %q, want %q", err, got, want)
		}
	}
}
