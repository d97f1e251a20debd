package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/pipeline"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/prompt"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

func main() {
	address := flag.String("address", "", "Property address (required)")
	price := flag.Float64("price", 0, "Purchase price in dollars (required)")
	rent := flag.Float64("rent", 0, "Expected monthly rent in dollars")
	expenses := flag.Float64("expenses", 0, "Annual operating expenses in dollars")
	down := flag.Float64("down", 20, "Down payment percent")
	rate := flag.Float64("rate", 7.0, "Annual interest rate percent")
	term := flag.Int("term", finance.DefaultLoanTermYears, "Loan term in years")
	strategyFlag := flag.String("strategy", string(screening.StrategyPassiveIncome), "Investment strategy")
	listing := flag.String("listing", "", "Listing URL for rental comps")
	fast := flag.Bool("fast", false, "Skip the advisory crew and print engine results only")
	simulate := flag.Bool("simulate", false, "Run the crew with scripted agents (no API keys needed)")
	flag.Parse()

	if *address == "" || *price <= 0 {
		fmt.Println("Error: -address and -price are required")
		flag.Usage()
		os.Exit(1)
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	strategy, err := screening.ParseStrategy(*strategyFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	deal := finance.PropertyDeal{
		PurchasePrice:           *price,
		MonthlyRent:             *rent,
		AnnualOperatingExpenses: *expenses,
		DownPaymentPercent:      *down,
		InterestRatePercent:     *rate,
		LoanTermYears:           *term,
	}

	fmt.Printf("🏠 Real Estate Advisor evaluating %s\n", *address)

	// Prompt library is optional here; the crew agents carry hardcoded fallbacks
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err == nil {
		fmt.Printf("[PROMPT] Loaded %d prompts from %s\n", prompt.Get().Count(), resourcesPath)
	}

	// Model provider bindings
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	mgr := agent.NewManager(agentCfg)

	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] Database init failed: %v. Running without persistence.\n", err)
		}
	}

	p := pipeline.NewAdvisorPipeline(mgr)

	result, err := p.Run(context.Background(), pipeline.EvaluationRequest{
		Address:    *address,
		Deal:       deal,
		Strategy:   strategy,
		ListingURL: *listing,
		FastPath:   *fast,
		Simulation: *simulate,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
