// The metrics engine runs the deterministic calculators behind a minimal
// HTTP surface: deal in, figures out. No models, no database, no cache, so
// it can be deployed as a sidecar wherever a UI or batch job needs numbers
// without the advisory stack.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
)

type CalculateRequest struct {
	Deal map[string]interface{} `json:"deal"`
	// Assumptions overlay the engine defaults field by field
	Assumptions *finance.Assumptions `json:"assumptions"`
}

type CalculateResponse struct {
	Deal        finance.PropertyDeal   `json:"deal"`
	Assumptions finance.Assumptions    `json:"assumptions"`
	Metrics     *finance.MetricsResult `json:"metrics"`
	Exit        *finance.ExitAnalysis  `json:"exit_analysis,omitempty"`
}

func handleCalculate(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Pre-fill with defaults so a partial assumptions object overrides only
	// the fields it names
	defaults := finance.DefaultAssumptions()
	req := CalculateRequest{Assumptions: &defaults}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if len(req.Deal) == 0 {
		http.Error(w, "deal is required", http.StatusBadRequest)
		return
	}

	deal, err := finance.ParseDeal(req.Deal)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assumptions := *req.Assumptions
	if err := assumptions.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics, err := finance.ComputeWith(deal, assumptions)
	if err != nil {
		http.Error(w, fmt.Sprintf("Calculation failed: %v", err), http.StatusInternalServerError)
		return
	}

	resp := CalculateResponse{
		Deal:        deal,
		Assumptions: assumptions,
		Metrics:     metrics,
	}

	// A failed hold projection degrades the response instead of failing it
	if exit, err := finance.AnalyzeExitWith(deal, assumptions); err != nil {
		fmt.Printf("[CALC] Exit analysis unavailable: %v\n", err)
	} else {
		resp.Exit = exit
	}

	fmt.Printf("[CALC] NOI $%.2f/yr | cap rate %.2f%% | cash flow $%.2f/mo\n",
		metrics.NOI, metrics.CapRate*100, metrics.MonthlyCashFlow)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func main() {
	http.HandleFunc("/calculate", handleCalculate)

	fmt.Println("Metrics engine starting on :8090...")
	fmt.Println("  - POST /calculate")

	if err := http.ListenAndServe(":8090", nil); err != nil {
		fmt.Printf("[FATAL] Metrics engine failed to start: %v\n", err)
		os.Exit(1)
	}
}
