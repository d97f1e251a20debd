package advise

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/crew"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

type StartEvaluationRequest struct {
	Address    string                 `json:"address"`
	Deal       map[string]interface{} `json:"deal"`
	Strategy   string                 `json:"strategy"`
	ListingURL string                 `json:"listing_url"`
	Simulation bool                   `json:"simulation"`
}

type StartEvaluationResponse struct {
	EvaluationID string `json:"evaluation_id"`
}

// HandleStartEvaluation initiates a new background crew evaluation
func HandleStartEvaluation(w http.ResponseWriter, r *http.Request) {
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

	var req StartEvaluationRequest
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

	// Empty strategy is allowed; the manager falls back to Passive Income
	var strategy screening.Strategy
	if req.Strategy != "" {
		strategy, err = screening.ParseStrategy(req.Strategy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	manager := crew.GetManager()

	id, err := manager.StartEvaluation(crew.EvaluationParams{
		Address:      req.Address,
		Deal:         deal,
		Strategy:     strategy,
		ListingURL:   req.ListingURL,
		IsSimulation: req.Simulation,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to start evaluation: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(StartEvaluationResponse{EvaluationID: id})
}

// HandleEvaluationStatus reports the lifecycle state of one evaluation
func HandleEvaluationStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	evaluationID := r.URL.Query().Get("id")
	if evaluationID == "" {
		http.Error(w, "Missing 'id' query parameter", http.StatusBadRequest)
		return
	}

	manager := crew.GetManager()
	orch, exists := manager.GetEvaluation(evaluationID)
	if !exists {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"evaluation_id": orch.ID,
		"address":       orch.Address,
		"strategy":      orch.Strategy,
		"status":        orch.Status,
		"stage":         orch.Stage,
		"updated_at":    orch.UpdatedAt,
	})
}

// HandleEvaluationResult returns the final advisory report. Evaluations
// evicted from memory are looked up in the database archive.
func HandleEvaluationResult(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	evaluationID := r.URL.Query().Get("id")
	if evaluationID == "" {
		http.Error(w, "Missing 'id' query parameter", http.StatusBadRequest)
		return
	}

	manager := crew.GetManager()
	orch, exists := manager.GetEvaluation(evaluationID)
	if exists {
		if orch.FinalReport != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(orch.FinalReport)
			return
		}
		// Known but not finished (or failed before a report was produced)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": string(orch.Status)})
		return
	}

	report, err := crew.NewCrewRepo().LoadReport(r.Context(), evaluationID)
	if err != nil {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleEvaluationTranscript returns the full message transcript, from memory
// for live evaluations and from the database for evicted ones.
func HandleEvaluationTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	evaluationID := r.URL.Query().Get("id")
	if evaluationID == "" {
		http.Error(w, "Missing 'id' query parameter", http.StatusBadRequest)
		return
	}

	manager := crew.GetManager()
	orch, exists := manager.GetEvaluation(evaluationID)
	if exists {
		// Subscribe copies the history under the orchestrator lock
		ch, history := orch.Subscribe()
		orch.Unsubscribe(ch)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"evaluation_id": evaluationID,
			"messages":      history,
		})
		return
	}

	history, err := crew.NewCrewRepo().GetEvaluationHistory(r.Context(), evaluationID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load transcript: %v", err), http.StatusInternalServerError)
		return
	}
	if len(history) == 0 {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"evaluation_id": evaluationID,
		"messages":      history,
	})
}

// HandleStreamEvaluation provides an SSE stream of crew messages, including history
func HandleStreamEvaluation(w http.ResponseWriter, r *http.Request) {
	// CORS for EventSource
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")

	evaluationID := r.URL.Query().Get("id")
	if evaluationID == "" {
		http.Error(w, "Missing 'id' query parameter", http.StatusBadRequest)
		return
	}

	manager := crew.GetManager()
	orch, exists := manager.GetEvaluation(evaluationID)
	if !exists {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}

	// 1. Subscribe to updates
	msgChan, history := orch.Subscribe()
	defer orch.Unsubscribe(msgChan)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// 2. Send history immediately
	for _, msg := range history {
		if err := sendSSE(w, flusher, msg); err != nil {
			return // Client disconnected
		}
	}

	// 3. Stream live updates
	// Heartbeat ticker to keep connection alive
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	notify := r.Context().Done()

	for {
		select {
		case msg, open := <-msgChan:
			if !open {
				// Channel closed means evaluation finished/unsubscribed
				sendSSEEvent(w, flusher, "status", "completed")
				return
			}
			if err := sendSSE(w, flusher, msg); err != nil {
				return
			}
			if orch.Status == crew.StatusCompleted {
				sendSSEEvent(w, flusher, "status", "completed")
			} else if orch.Status == crew.StatusFailed {
				sendSSEEvent(w, flusher, "status", "failed")
			}

		case <-ticker.C:
			// Send comment to keep connection alive
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-notify:
			// Client disconnected
			return
		}
	}
}

// HandleActiveEvaluations returns a list of running evaluation IDs
func HandleActiveEvaluations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	manager := crew.GetManager()
	active := manager.GetActiveEvaluations()

	json.NewEncoder(w).Encode(map[string][]string{"active_evaluations": active})
}

// Helper to send a JSON data event
func sendSSE(w http.ResponseWriter, flusher http.Flusher, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
	return nil
}

// Helper to send a typed event
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
