package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
)

func newTestHandler() *Handler {
	mgr := agent.NewManager(agent.Config{ActiveProvider: "gemini"})
	return NewHandler(mgr)
}

func TestHandleConfig(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("GET", "/api/config", nil)
	rec := httptest.NewRecorder()

	h.HandleConfig(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ActiveProvider != "gemini" {
		t.Errorf("Expected active provider gemini, got %s", resp.ActiveProvider)
	}
	if len(resp.Available) != 4 {
		t.Errorf("Expected 4 available providers, got %d", len(resp.Available))
	}
}

func TestHandleSwitch(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/api/config/switch", strings.NewReader(`{"provider": "deepseek"}`))
	rec := httptest.NewRecorder()

	h.HandleSwitch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Switched to deepseek") {
		t.Errorf("Expected switch confirmation, got %q", rec.Body.String())
	}
	if h.AgentMgr.GetActiveProvider() != "deepseek" {
		t.Errorf("Expected active provider deepseek, got %s", h.AgentMgr.GetActiveProvider())
	}
}

func TestHandleSwitch_UnknownProvider(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/api/config/switch", strings.NewReader(`{"provider": "watson"}`))
	rec := httptest.NewRecorder()

	h.HandleSwitch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	if h.AgentMgr.GetActiveProvider() != "gemini" {
		t.Errorf("Expected active provider to stay gemini, got %s", h.AgentMgr.GetActiveProvider())
	}
}

func TestHandleStrategies(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("GET", "/api/config/strategies", nil)
	rec := httptest.NewRecorder()

	h.HandleStrategies(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Strategies []StrategyInfo `json:"strategies"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Strategies) != 3 {
		t.Fatalf("Expected 3 strategies, got %d", len(resp.Strategies))
	}
	if resp.Strategies[0].Name != "Passive Income" {
		t.Errorf("Expected Passive Income first, got %s", resp.Strategies[0].Name)
	}
	if resp.Strategies[0].Profile.MinCapRate != 0.06 {
		t.Errorf("Expected min cap rate 0.06, got %.2f", resp.Strategies[0].Profile.MinCapRate)
	}
}
