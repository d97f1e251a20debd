package evaluate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/pipeline"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

// setupHandler wires the package state the way InitHandler does, but with
// offline dependencies: no comps source, a temp-dir comps cache and an
// in-memory report cache.
func setupHandler(t *testing.T) {
	t.Helper()
	advisorPipeline = pipeline.NewAdvisorPipelineWithDeps(nil, nil, store.NewCompsCache(nil, t.TempDir()), store.NewMockCache(), nil)
	evaluationRepo = store.NewEvaluationRepo()
}

func evaluateBody() string {
	return `{
		"address": "123 Maple St, Springfield, IL",
		"deal": {
			"purchase_price": 475000,
			"monthly_rent": 3400,
			"annual_operating_expenses": 14000,
			"down_payment_percent": 25,
			"interest_rate_percent": 7.25,
			"loan_term_years": 30
		},
		"strategy": "Passive Income"
	}`
}

func TestHandleEvaluate_FastPath(t *testing.T) {
	setupHandler(t)

	req := httptest.NewRequest("POST", "/api/evaluate", strings.NewReader(evaluateBody()))
	rec := httptest.NewRecorder()

	HandleEvaluate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result pipeline.EvaluationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result.EvaluationID == "" {
		t.Error("Expected an evaluation id in the response")
	}
	if result.Metrics == nil {
		t.Fatal("Expected metrics in the response")
	}
	// 3400*12 - 14000 = 26800
	if result.Metrics.NOI != 26800 {
		t.Errorf("Expected NOI 26800, got %.2f", result.Metrics.NOI)
	}
	if result.Screening == nil {
		t.Fatal("Expected a screening result in the response")
	}
	if result.Screening.QuickVerdict != screening.VerdictPass {
		t.Errorf("Expected verdict %s, got %s", screening.VerdictPass, result.Screening.QuickVerdict)
	}
	if result.Report != nil {
		t.Error("Expected no advisory report on the fast path")
	}
}

func TestHandleEvaluate_Preflight(t *testing.T) {
	setupHandler(t)

	req := httptest.NewRequest("OPTIONS", "/api/evaluate", nil)
	rec := httptest.NewRecorder()

	HandleEvaluate(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for preflight, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Expected wildcard CORS origin, got %q", origin)
	}
}

func TestHandleEvaluate_Rejections(t *testing.T) {
	testCases := []struct {
		name           string
		method         string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Method Not Allowed",
			method:         "GET",
			body:           "",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedError:  "Method not allowed",
		},
		{
			name:           "Invalid JSON",
			method:         "POST",
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON body",
		},
		{
			name:           "Missing Address",
			method:         "POST",
			body:           `{"deal": {"purchase_price": 100000, "monthly_rent": 900}}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "address and deal are required",
		},
		{
			name:           "Missing Deal",
			method:         "POST",
			body:           `{"address": "1 Elm St"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "address and deal are required",
		},
		{
			name:           "Invalid Deal",
			method:         "POST",
			body:           `{"address": "1 Elm St", "deal": {"purchase_price": 0, "monthly_rent": 1000}}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "purchase_price must be greater than zero",
		},
		{
			name:           "Unknown Strategy",
			method:         "POST",
			body:           `{"address": "1 Elm St", "deal": {"purchase_price": 250000, "monthly_rent": 2000}, "strategy": "Yolo"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "strategy must be one of",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupHandler(t)

			req := httptest.NewRequest(tc.method, "/api/evaluate", bytes.NewReader([]byte(tc.body)))
			rec := httptest.NewRecorder()

			HandleEvaluate(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.expectedError) {
				t.Errorf("Expected error containing %q, got %q", tc.expectedError, rec.Body.String())
			}
		})
	}
}

func TestHandleRecentEvaluations_NoDatabase(t *testing.T) {
	setupHandler(t)

	req := httptest.NewRequest("GET", "/api/evaluations", nil)
	rec := httptest.NewRecorder()

	HandleRecentEvaluations(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without a database, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Database not configured") {
		t.Errorf("Expected database error, got %q", rec.Body.String())
	}
}

func TestHandleEvaluationRecord_NoDatabase(t *testing.T) {
	setupHandler(t)

	req := httptest.NewRequest("GET", "/api/evaluations/get?id=abc", nil)
	rec := httptest.NewRecorder()

	HandleEvaluationRecord(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without a database, got %d", rec.Code)
	}
}
