package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_IncrementsCounterWithLabels はHTTPリクエストカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/params", 200)
	c.RecordHTTPRequest("GET", "/params", 200)
	c.RecordHTTPRequest("GET", "/daily", 400)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_http_requests_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				val := m.GetCounter().GetValue()
				switch labels["path"] {
				case "/params":
					if val != 2 {
						t.Errorf("http_requests_total{path=/params} = %v, want 2", val)
					}
					if labels["status_code"] != "200" {
						t.Errorf("status_code = %q, want %q", labels["status_code"], "200")
					}
				case "/daily":
					if val != 1 {
						t.Errorf("http_requests_total{path=/daily} = %v, want 1", val)
					}
					if labels["status_code"] != "400" {
						t.Errorf("status_code = %q, want %q", labels["status_code"], "400")
					}
				default:
					t.Errorf("unexpected path label: %s", labels["path"])
				}
			}
		}
	}
	if !found {
		t.Error("garmetry_http_requests_total metric not found")
	}
}

// TestRecordHTTPLatency_ObservesHistogram はHTTPレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordHTTPLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPLatency(100 * time.Millisecond)
	c.RecordHTTPLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_http_request_duration_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("garmetry_http_request_duration_seconds metric not found")
	}
}

// TestRecordUpstreamQuery_CountsSuccessAndFailureSeparately は上流クエリの成否が別ラベルで計数されることを検証する。
func TestRecordUpstreamQuery_CountsSuccessAndFailureSeparately(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamQuery("heart_rates", true)
	c.RecordUpstreamQuery("heart_rates", true)
	c.RecordUpstreamQuery("heart_rates", false)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_upstream_queries_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				val := m.GetCounter().GetValue()
				switch labels["result"] {
				case "success":
					if val != 2 {
						t.Errorf("upstream_queries_total{result=success} = %v, want 2", val)
					}
				case "failure":
					if val != 1 {
						t.Errorf("upstream_queries_total{result=failure} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected result label: %s", labels["result"])
				}
			}
		}
	}
	if !found {
		t.Error("garmetry_upstream_queries_total metric not found")
	}
}

// TestRecordUpstreamLatency_ObservesPerQueryHistogram は上流クエリレイテンシがクエリ別に記録されることを検証する。
func TestRecordUpstreamLatency_ObservesPerQueryHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamLatency("activities", 250*time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_upstream_query_duration_seconds" {
			found = true
			m := mf.GetMetric()[0]
			if m.GetLabel()[0].GetValue() != "activities" {
				t.Errorf("query label = %q, want %q", m.GetLabel()[0].GetValue(), "activities")
			}
			if m.GetHistogram().GetSampleCount() != 1 {
				t.Errorf("sample_count = %d, want 1", m.GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("garmetry_upstream_query_duration_seconds metric not found")
	}
}

// TestRecordSession_CountsByResult はセッション確立が結果別に計数されることを検証する。
func TestRecordSession_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSession(SessionResultToken)
	c.RecordSession(SessionResultCredentials)
	c.RecordSession(SessionResultFailed)
	c.RecordSession(SessionResultToken)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_sessions_total" {
			for _, m := range mf.GetMetric() {
				counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		}
	}

	if counts[SessionResultToken] != 2 {
		t.Errorf("sessions_total{result=token} = %v, want 2", counts[SessionResultToken])
	}
	if counts[SessionResultCredentials] != 1 {
		t.Errorf("sessions_total{result=credentials} = %v, want 1", counts[SessionResultCredentials])
	}
	if counts[SessionResultFailed] != 1 {
		t.Errorf("sessions_total{result=failed} = %v, want 1", counts[SessionResultFailed])
	}
}

// TestRecordTokenRefresh_IncrementsCounter はトークンリフレッシュの成否が計数されることを検証する。
func TestRecordTokenRefresh_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenRefresh(true)
	c.RecordTokenRefresh(false)
	c.RecordTokenRefresh(true)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range metrics {
		if mf.GetName() == "garmetry_token_refresh_total" {
			for _, m := range mf.GetMetric() {
				counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		}
	}

	if counts["success"] != 2 {
		t.Errorf("token_refresh_total{result=success} = %v, want 2", counts["success"])
	}
	if counts["failure"] != 1 {
		t.Errorf("token_refresh_total{result=failure} = %v, want 1", counts["failure"])
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordHTTPRequest("GET", "/params", 200)
	c.RecordUpstreamQuery("ftp", true)
	c.RecordSession(SessionResultToken)
	c.RecordHTTPLatency(500 * time.Millisecond)
	c.RecordTokenRefresh(true)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"garmetry_http_requests_total",
		"garmetry_upstream_queries_total",
		"garmetry_sessions_total",
		"garmetry_http_request_duration_seconds",
		"garmetry_token_refresh_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordSession(SessionResultToken)
	c2.RecordSession(SessionResultToken)
	c2.RecordSession(SessionResultToken)

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "garmetry_sessions_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "garmetry_sessions_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 sessions_total = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 sessions_total = %v, want 2", val2)
	}
}
