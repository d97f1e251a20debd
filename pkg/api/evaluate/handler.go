package evaluate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/pipeline"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

var advisorPipeline *pipeline.AdvisorPipeline
var evaluationRepo *store.EvaluationRepo

func InitHandler(mgr *agent.Manager) {
	advisorPipeline = pipeline.NewAdvisorPipeline(mgr)
	evaluationRepo = store.NewEvaluationRepo() // Methods degrade when no pool is configured
}

type EvaluateRequest struct {
	Address    string                 `json:"address"`
	Deal       map[string]interface{} `json:"deal"`
	Strategy   string                 `json:"strategy"`
	ListingURL string                 `json:"listing_url"`
}

// HandleEvaluate runs the deterministic fast path: validation, metrics,
// exit analysis, comps and screening, with no advisory crew involved.
func HandleEvaluate(w http.ResponseWriter, r *http.Request) {
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

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Address == "" || len(req.Deal) == 0 {
		http.Error(w, "address and deal are required", http.StatusBadRequest)
		return
	}

	deal, err := finance.ParseDeal(req.Deal)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var strategy screening.Strategy
	if req.Strategy != "" {
		strategy, err = screening.ParseStrategy(req.Strategy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	fmt.Printf("[EVALUATE] Request: %s (strategy: %s)\n", req.Address, strategy)

	result, err := advisorPipeline.Run(r.Context(), pipeline.EvaluationRequest{
		Address:    req.Address,
		Deal:       deal,
		Strategy:   strategy,
		ListingURL: req.ListingURL,
		FastPath:   true,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Evaluation failed: %v", err), http.StatusInternalServerError)
		return
	}

	fmt.Printf("[EVALUATE] Completed: %s -> %s\n", req.Address, result.Screening.QuickVerdict)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleRecentEvaluations lists summaries of archived evaluations.
func HandleRecentEvaluations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if store.GetPool() == nil {
		http.Error(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw) // Repo applies its own default on bad input
	}

	summaries, err := evaluationRepo.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list evaluations: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"evaluations": summaries})
}

// HandleEvaluationRecord fetches one archived evaluation by id or, when only
// an address is given, the most recent run for that address.
func HandleEvaluationRecord(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if store.GetPool() == nil {
		http.Error(w, "Database not configured", http.StatusServiceUnavailable)
		return
	}

	id := r.URL.Query().Get("id")
	address := r.URL.Query().Get("address")
	if id == "" && address == "" {
		http.Error(w, "Missing 'id' or 'address' query parameter", http.StatusBadRequest)
		return
	}

	var record *store.EvaluationRecord
	var err error
	if id != "" {
		record, err = evaluationRepo.Load(r.Context(), id)
	} else {
		record, err = evaluationRepo.LoadByAddress(r.Context(), address)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}
