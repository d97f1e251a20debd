package config

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// StrategyInfo pairs a strategy name with its screening thresholds
type StrategyInfo struct {
	Name    string                    `json:"name"`
	Profile screening.StrategyProfile `json:"profile"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager) *Handler {
	return &Handler{
		AgentMgr: agentMgr,
	}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	resp := Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      []string{"groq", "gemini", "deepseek", "qwen"},
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req SwitchRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = h.AgentMgr.SetGlobalProvider(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fmt.Fprintf(w, "Success: Switched to %s", req.Provider)
}

// HandleStrategies lists the supported investment strategies and the
// thresholds each one screens against.
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	strategies := []screening.Strategy{
		screening.StrategyPassiveIncome,
		screening.StrategyAggressiveGrowth,
		screening.StrategyFixAndFlip,
	}

	infos := make([]StrategyInfo, 0, len(strategies))
	for _, s := range strategies {
		infos = append(infos, StrategyInfo{Name: string(s), Profile: s.Profile()})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]StrategyInfo{"strategies": infos})
}
