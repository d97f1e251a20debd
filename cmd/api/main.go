package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/api/advise"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/api/config"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/api/evaluate"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/crew"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/prompt"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

var agentMgr *agent.Manager

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize Prompt Library
	// Determine resources path (relative to executable or working directory)
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		// Try from executable directory
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		fmt.Printf("[WARNING] Failed to load prompt library: %v\n", err)
		fmt.Println("  Falling back to hardcoded prompts")
	} else {
		fmt.Printf("[PROMPT] Loaded %d prompts from %s\n", prompt.Get().Count(), resourcesPath)
	}

	// Initialize manager from config
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr = agent.NewManager(agentCfg)

	// Database is optional: without DATABASE_URL the server keeps running on
	// file and in-memory fallbacks and skips evaluation archiving
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database init failed: %v. Running without persistence.\n", err)
		} else {
			fmt.Println("[STORE] Connected to Postgres.")
		}
	} else {
		fmt.Println("[STORE] DATABASE_URL not set. Running without persistence.")
	}

	// Config endpoints
	configHandler := config.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)
	http.HandleFunc("/api/config/strategies", configHandler.HandleStrategies)

	// Deterministic fast-path evaluation endpoints
	evaluate.InitHandler(agentMgr)
	http.HandleFunc("/api/evaluate", evaluate.HandleEvaluate)
	http.HandleFunc("/api/evaluations", evaluate.HandleRecentEvaluations)
	http.HandleFunc("/api/evaluations/get", evaluate.HandleEvaluationRecord)

	// Initialize Crew Manager with Agent Manager
	fmt.Println("Initializing Crew Manager...")
	crew.GetManager().SetAgentManager(agentMgr)

	// Advisory crew endpoints
	fmt.Println("Registering Advisory Endpoints...")
	http.HandleFunc("/api/advise/start", advise.HandleStartEvaluation)
	http.HandleFunc("/api/advise/stream", advise.HandleStreamEvaluation)
	http.HandleFunc("/api/advise/status", advise.HandleEvaluationStatus)
	http.HandleFunc("/api/advise/result", advise.HandleEvaluationResult)
	http.HandleFunc("/api/advise/transcript", advise.HandleEvaluationTranscript)
	http.HandleFunc("/api/advise/active", advise.HandleActiveEvaluations)
	fmt.Println("Advisory Endpoints Registered.")

	fmt.Println("API server starting on :8080...")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - GET  /api/config/strategies")
	fmt.Println("  - POST /api/evaluate  (deterministic fast path)")
	fmt.Println("  - GET  /api/evaluations")
	fmt.Println("  - GET  /api/evaluations/get")
	fmt.Println("  - POST /api/advise/start")
	fmt.Println("  - GET  /api/advise/stream  (SSE streaming)")
	fmt.Println("  - GET  /api/advise/status")
	fmt.Println("  - GET  /api/advise/result")
	fmt.Println("  - GET  /api/advise/transcript")
	fmt.Println("  - GET  /api/advise/active")

	// Use os.Exit(1) so a failed bind (e.g. port in use) is visible to the caller
	if err := http.ListenAndServe(":8080", nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
