package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// TestRecordHTTPStatus_LabelsByStatusCode はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_LabelsByStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(429)

	mf := findMetricFamily(t, reg, "timegarden_http_status_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if got["200"] != 2 || got["429"] != 1 {
		t.Errorf("http_status_total = %v, want 200:2 429:1", got)
	}
}

// TestRecordFocusSession_LabelsByCompletion は完了/中断別に記録されることを検証する。
func TestRecordFocusSession_LabelsByCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFocusSession(true)
	c.RecordFocusSession(false)
	c.RecordFocusSession(true)

	mf := findMetricFamily(t, reg, "timegarden_focus_sessions_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if got["true"] != 2 || got["false"] != 1 {
		t.Errorf("focus_sessions_total = %v, want true:2 false:1", got)
	}
}

// TestCounters は単純カウンタが加算されることを検証する。
func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGardenItemCreated()
	c.RecordRegistration()
	c.RecordRegistration()
	c.RecordLoginFailure()
	c.RecordExpiredTokensPurged(5)
	c.RecordExpiredTokensPurged(0)

	tests := []struct {
		name string
		want float64
	}{
		{"timegarden_garden_items_created_total", 1},
		{"timegarden_registrations_total", 2},
		{"timegarden_login_failures_total", 1},
		{"timegarden_expired_tokens_purged_total", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := findMetricFamily(t, reg, tt.name)
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestRecordRequestLatency_ObservesHistogram はヒストグラムに観測値が記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	mf := findMetricFamily(t, reg, "timegarden_http_request_duration_seconds")
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

// TestHandler_ServesMetrics はHandlerがPrometheus形式でメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRegistration()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "timegarden_registrations_total 1") {
		t.Errorf("response should contain timegarden_registrations_total, got:\n%s", body)
	}
}

// TestNop_ImplementsCollector はNopが全メソッドを安全に呼べることを検証する。
func TestNop_ImplementsCollector(t *testing.T) {
	var c MetricsCollector = Nop{}
	c.RecordHTTPStatus(500)
	c.RecordRequestLatency(time.Second)
	c.RecordFocusSession(true)
	c.RecordGardenItemCreated()
	c.RecordRegistration()
	c.RecordLoginFailure()
	c.RecordExpiredTokensPurged(1)
}
