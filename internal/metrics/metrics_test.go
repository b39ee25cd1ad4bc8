package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	return string(body)
}

func TestNewCollector(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("expected non-nil collector")
	}
}

func TestHandlerServesGoRuntimeMetrics(t *testing.T) {
	body := scrape(t, New())
	if !strings.Contains(body, "go_goroutines") {
		t.Fatal("expected go_goroutines metric")
	}
}

func TestSwapCounters(t *testing.T) {
	c := New()
	c.IncSwap("committed")
	c.IncSwap("committed")
	c.IncSwap("rolled_back")
	c.IncRollback("test")

	body := scrape(t, c)
	if !strings.Contains(body, `reloadconf_swap_total{outcome="committed"} 2`) {
		t.Fatalf("missing committed counter:\n%s", body)
	}
	if !strings.Contains(body, `reloadconf_swap_total{outcome="rolled_back"} 1`) {
		t.Fatalf("missing rolled_back counter:\n%s", body)
	}
	if !strings.Contains(body, `reloadconf_swap_rollback_total{stage="test"} 1`) {
		t.Fatalf("missing rollback stage counter:\n%s", body)
	}
}

func TestProcessMetrics(t *testing.T) {
	c := New()
	c.IncProcessStart()
	c.IncProcessReload("signal")
	c.SetProcessUp(true)

	body := scrape(t, c)
	if !strings.Contains(body, "reloadconf_process_start_total 1") {
		t.Fatalf("missing start counter:\n%s", body)
	}
	if !strings.Contains(body, `reloadconf_process_reload_total{method="signal"} 1`) {
		t.Fatalf("missing reload counter:\n%s", body)
	}
	if !strings.Contains(body, "reloadconf_process_up 1") {
		t.Fatalf("missing up gauge:\n%s", body)
	}

	c.SetProcessUp(false)
	body = scrape(t, c)
	if !strings.Contains(body, "reloadconf_process_up 0") {
		t.Fatalf("up gauge should drop to 0:\n%s", body)
	}
}

func TestBuildInfo(t *testing.T) {
	c := New()
	c.SetBuildInfo("1.2.3", "go1.26.0")

	body := scrape(t, c)
	if !strings.Contains(body, `reloadconf_info{go_version="go1.26.0",version="1.2.3"} 1`) {
		t.Fatalf("missing build info:\n%s", body)
	}
}
