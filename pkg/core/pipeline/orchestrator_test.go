package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/crew"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

// --- Mocks ---

type MockCompsSource struct {
	FetchCompsFunc func(ctx context.Context, url, location string, dealMonthlyRent float64) (*market.CompsReport, error)
	Calls          int
}

func (m *MockCompsSource) FetchComps(ctx context.Context, url, location string, dealMonthlyRent float64) (*market.CompsReport, error) {
	m.Calls++
	if m.FetchCompsFunc != nil {
		return m.FetchCompsFunc(ctx, url, location, dealMonthlyRent)
	}
	return sampleComps(dealMonthlyRent), nil
}

type MockRepository struct {
	SaveFunc func(ctx context.Context, record *store.EvaluationRecord) error
	Saved    []*store.EvaluationRecord
}

func (m *MockRepository) Save(ctx context.Context, record *store.EvaluationRecord) error {
	m.Saved = append(m.Saved, record)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, record)
	}
	return nil
}

// --- Fixtures ---

// referenceDeal is the benchmark financed case: $475k at 25% down, 7.25%
// APR over 30 years, renting at $3,400/mo against $14k/yr expenses. Cash
// flow is negative and DSCR is 0.92, so passive income screening verdicts
// PASS (walk away).
func referenceDeal() finance.PropertyDeal {
	return finance.PropertyDeal{
		PurchasePrice:           475000,
		MonthlyRent:             3400,
		AnnualOperatingExpenses: 14000,
		DownPaymentPercent:      25,
		InterestRatePercent:     7.25,
		LoanTermYears:           30,
	}
}

// sampleComps builds a three-listing report with a $3,400 median, matching
// the reference deal's asking rent.
func sampleComps(dealRent float64) *market.CompsReport {
	listings := []market.CompListing{
		{Address: "101 Maple Ave", MonthlyRent: 3300, Bedrooms: 3, Bathrooms: 2, SquareFeet: 1500},
		{Address: "205 Birch Ct", MonthlyRent: 3400, Bedrooms: 3, Bathrooms: 2, SquareFeet: 1550},
		{Address: "310 Cedar Ln", MonthlyRent: 3550, Bedrooms: 4, Bathrooms: 2, SquareFeet: 1700},
	}
	report := market.BuildReport("Springfield, IL", listings, dealRent)
	return &report
}

// newTestPipeline wires a pipeline against mocks: scripted crew, canned
// comps, in-memory report cache, recording repository. The comps snapshot
// cache stays nil so tests do not touch the filesystem unless they opt in.
func newTestPipeline() (*AdvisorPipeline, *MockCompsSource, *store.MockCache, *MockRepository) {
	comps := &MockCompsSource{}
	cache := store.NewMockCache()
	repo := &MockRepository{}
	p := NewAdvisorPipelineWithDeps(nil, comps, nil, cache, repo)
	return p, comps, cache, repo
}

// --- Tests ---

func TestAdvisorPipeline_Run(t *testing.T) {
	reportFile, err := os.Create("test_report.txt")
	if err != nil {
		t.Fatalf("Failed to create report file: %v", err)
	}
	defer reportFile.Close()

	reportLog := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		fmt.Println(msg)
		reportFile.WriteString(msg + "\n")
	}

	reportLog("--- Starting Test Execution for AdvisorPipeline ---\n")

	type testCase struct {
		name          string
		request       EvaluationRequest
		setupMocks    func(*MockCompsSource, *store.MockCache, *MockRepository)
		expectedError string // exact or suffix match
		verify        func(t *testing.T, res *EvaluationResult, repo *MockRepository)
	}

	tests := []testCase{
		{
			name: "Success - Fast Path",
			request: EvaluationRequest{
				Address:  "12 Oak St, Springfield",
				Deal:     referenceDeal(),
				Strategy: screening.StrategyPassiveIncome,
				FastPath: true,
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				if res.Report != nil {
					t.Error("Expected no report on the fast path")
				}
				if res.Metrics == nil || res.Metrics.NOI != 26800 {
					t.Errorf("Expected NOI 26800, got %+v", res.Metrics)
				}
				if res.Screening == nil || res.Screening.QuickVerdict != screening.VerdictPass {
					t.Errorf("Expected quick verdict PASS, got %+v", res.Screening)
				}
				if len(repo.Saved) != 0 {
					t.Errorf("Expected fast path to skip the archive, got %d save(s)", len(repo.Saved))
				}
			},
		},
		{
			name: "Success - Simulated Crew",
			request: EvaluationRequest{
				Address:    "12 Oak St, Springfield",
				Deal:       referenceDeal(),
				Strategy:   screening.StrategyPassiveIncome,
				Simulation: true,
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				if res.Report == nil {
					t.Fatal("Expected an advisory report from the simulated crew")
				}
				if res.Report.Verdict != "PASS" {
					t.Errorf("Expected verdict PASS, got %q", res.Report.Verdict)
				}
				if res.ReportFromCache {
					t.Error("Expected a fresh report, got a cached one")
				}
				if len(repo.Saved) != 1 {
					t.Fatalf("Expected 1 archived record, got %d", len(repo.Saved))
				}
				record := repo.Saved[0]
				if record.Strategy != "Passive Income" {
					t.Errorf("Expected archived strategy 'Passive Income', got %q", record.Strategy)
				}
				if len(record.Report) == 0 {
					t.Error("Expected the archived record to carry the report JSON")
				}
			},
		},
		{
			name: "Edge Case - Invalid Deal",
			request: EvaluationRequest{
				Address:  "12 Oak St, Springfield",
				Deal:     finance.PropertyDeal{MonthlyRent: 3400, LoanTermYears: 30},
				Strategy: screening.StrategyPassiveIncome,
				FastPath: true,
			},
			expectedError: "invalid deal: purchase_price must be greater than zero",
		},
		{
			name: "Edge Case - Comps Fetch Error (Continue)",
			request: EvaluationRequest{
				Address:    "12 Oak St, Springfield",
				Deal:       referenceDeal(),
				Strategy:   screening.StrategyPassiveIncome,
				ListingURL: "http://example.com/listings/springfield",
				FastPath:   true,
			},
			setupMocks: func(c *MockCompsSource, cache *store.MockCache, r *MockRepository) {
				c.FetchCompsFunc = func(ctx context.Context, url, location string, dealMonthlyRent float64) (*market.CompsReport, error) {
					return nil, fmt.Errorf("network down")
				}
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				if res.Comps != nil {
					t.Error("Expected no comps after a fetch failure")
				}
				if res.Metrics == nil {
					t.Error("Expected metrics despite the comps failure")
				}
			},
		},
		{
			name: "Comps Attached From Listing",
			request: EvaluationRequest{
				Address:    "12 Oak St, Springfield",
				Deal:       referenceDeal(),
				Strategy:   screening.StrategyPassiveIncome,
				ListingURL: "http://example.com/listings/springfield",
				FastPath:   true,
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				if res.Comps == nil {
					t.Fatal("Expected a comps report")
				}
				if res.Comps.SampleSize != 3 {
					t.Errorf("Expected 3 comps, got %d", res.Comps.SampleSize)
				}
				if res.Comps.MedianRent != 3400 {
					t.Errorf("Expected median rent 3400, got %.2f", res.Comps.MedianRent)
				}
				if res.Comps.RentPosition != market.RentPositionAt {
					t.Errorf("Expected rent position %q, got %q", market.RentPositionAt, res.Comps.RentPosition)
				}
			},
		},
		{
			name: "Edge Case - Crew Failure",
			request: EvaluationRequest{
				Address:  "12 Oak St, Springfield",
				Deal:     referenceDeal(),
				Strategy: screening.StrategyPassiveIncome,
				// Live mode with no agent manager and no API key: every
				// agent constructor fails and the evaluation aborts.
			},
			expectedError: "ended with status failed",
		},
		{
			name: "Edge Case - Storage Failure (Continue)",
			request: EvaluationRequest{
				Address:    "12 Oak St, Springfield",
				Deal:       referenceDeal(),
				Strategy:   screening.StrategyPassiveIncome,
				Simulation: true,
			},
			setupMocks: func(c *MockCompsSource, cache *store.MockCache, r *MockRepository) {
				r.SaveFunc = func(ctx context.Context, record *store.EvaluationRecord) error {
					return fmt.Errorf("db connection lost")
				}
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				// The archive is a side channel; the evaluation result
				// must survive its loss.
				if res.Report == nil {
					t.Error("Expected a report despite the archive failure")
				}
			},
		},
		{
			name: "Cached Report Served",
			request: EvaluationRequest{
				Address:    "12 Oak St, Springfield",
				Deal:       referenceDeal(),
				Strategy:   screening.StrategyPassiveIncome,
				Simulation: true,
			},
			setupMocks: func(c *MockCompsSource, cache *store.MockCache, r *MockRepository) {
				metrics, err := finance.ComputeWith(referenceDeal(), finance.DefaultAssumptions())
				if err != nil {
					panic(err)
				}
				cached := &crew.AdvisoryReport{
					EvaluationID: "earlier-run",
					Verdict:      "PASS",
					Narrative:    "cached narrative",
					Figures:      crew.EngineFigures(metrics),
					FigureSource: crew.FigureSourceNarrative,
				}
				raw, _ := json.Marshal(cached)
				key := reportCacheKey(referenceDeal(), screening.StrategyPassiveIncome, true)
				cache.Data[key] = string(raw)
			},
			verify: func(t *testing.T, res *EvaluationResult, repo *MockRepository) {
				if !res.ReportFromCache {
					t.Fatal("Expected the cached report to be served")
				}
				if res.Report.Narrative != "cached narrative" {
					t.Errorf("Expected the cached narrative, got %q", res.Report.Narrative)
				}
				// The cached report keeps its original evaluation id as
				// provenance; the run gets a fresh one.
				if res.Report.EvaluationID != "earlier-run" {
					t.Errorf("Expected cached report provenance, got %q", res.Report.EvaluationID)
				}
				if res.EvaluationID == "earlier-run" {
					t.Error("Expected a fresh evaluation id for the run itself")
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reportLog("\nRunning Case: %s", tc.name)

			// The crew-failure case must not pick up a real key from the
			// environment and call a live model.
			t.Setenv("GEMINI_API_KEY", "")

			p, comps, cache, repo := newTestPipeline()
			if tc.setupMocks != nil {
				tc.setupMocks(comps, cache, repo)
			}

			res, err := p.Run(context.Background(), tc.request)

			if tc.expectedError == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
					reportLog("   [FAIL] Unexpected Bug: %v", err)
					return
				}
				reportLog("   [PASS] Pipeline executed successfully.")
				if tc.verify != nil {
					tc.verify(t, res, repo)
				}
			} else {
				if err == nil {
					t.Errorf("Expected error '%s', got nil", tc.expectedError)
					reportLog("   [FAIL] Expected error '%s', got nil", tc.expectedError)
				} else if err.Error() != tc.expectedError && !strings.HasSuffix(err.Error(), tc.expectedError) {
					t.Errorf("Expected error '%s', got: %v", tc.expectedError, err)
					reportLog("   [FAIL] Expected error '%s', got: %v", tc.expectedError, err)
				} else {
					reportLog("   [PASS] Caught expected error: %v", err)
				}
			}
		})
	}

	reportLog("\n--- End of Test Report ---")
}

func TestAdvisorPipeline_ReportCacheRoundTrip(t *testing.T) {
	p, _, cache, repo := newTestPipeline()
	req := EvaluationRequest{
		Address:    "12 Oak St, Springfield",
		Deal:       referenceDeal(),
		Strategy:   screening.StrategyPassiveIncome,
		Simulation: true,
	}
	ctx := context.Background()

	first, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.ReportFromCache {
		t.Error("Expected the first run to generate a fresh report")
	}
	if len(cache.Data) != 1 {
		t.Fatalf("Expected 1 cached report, got %d", len(cache.Data))
	}

	second, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !second.ReportFromCache {
		t.Error("Expected the second run to reuse the cached report")
	}
	if second.Report.Narrative != first.Report.Narrative {
		t.Error("Expected the cached narrative to match the original")
	}
	if second.EvaluationID == first.EvaluationID {
		t.Error("Expected each run to get its own evaluation id")
	}
	if len(repo.Saved) != 2 {
		t.Errorf("Expected both runs archived, got %d record(s)", len(repo.Saved))
	}
}

func TestAdvisorPipeline_StrictValidationRegeneratesStaleCache(t *testing.T) {
	p, _, cache, _ := newTestPipeline()
	p.SetValidationConfig(ValidationConfig{
		EnableStrictValidation: true,
		DollarTolerance:        0.5,
		RateTolerance:          2.0,
	})

	// Seed a cached report whose NOI is an invented number.
	stale := &crew.AdvisoryReport{
		EvaluationID: "stale-run",
		Verdict:      "BUY",
		Narrative:    "stale narrative",
		Figures:      map[string]float64{"noi": 99999},
		FigureSource: crew.FigureSourceNarrative,
	}
	raw, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("Failed to marshal stale report: %v", err)
	}
	key := reportCacheKey(referenceDeal(), screening.StrategyPassiveIncome, true)
	cache.Data[key] = string(raw)

	res, err := p.Run(context.Background(), EvaluationRequest{
		Address:    "12 Oak St, Springfield",
		Deal:       referenceDeal(),
		Strategy:   screening.StrategyPassiveIncome,
		Simulation: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.ReportFromCache {
		t.Error("Expected strict validation to reject the stale cache entry")
	}
	if res.Report.Verdict != "PASS" {
		t.Errorf("Expected a regenerated PASS report, got %q", res.Report.Verdict)
	}

	// The regenerated report replaces the stale entry.
	var refreshed crew.AdvisoryReport
	if err := json.Unmarshal([]byte(cache.Data[key]), &refreshed); err != nil {
		t.Fatalf("Failed to unmarshal refreshed cache entry: %v", err)
	}
	if refreshed.Verdict != "PASS" {
		t.Errorf("Expected the cache to hold the regenerated report, got verdict %q", refreshed.Verdict)
	}
}

func TestValidateReportFigures(t *testing.T) {
	p, _, _, _ := newTestPipeline()

	metrics, err := finance.ComputeWith(referenceDeal(), finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("Failed to compute metrics: %v", err)
	}

	strict := ValidationConfig{EnableStrictValidation: true, DollarTolerance: 0.5, RateTolerance: 2.0}

	// Exact engine figures pass a strict check.
	p.SetValidationConfig(strict)
	report := &crew.AdvisoryReport{
		Figures:      crew.EngineFigures(metrics),
		FigureSource: crew.FigureSourceNarrative,
	}
	if err := p.validateReportFigures(report, metrics); err != nil {
		t.Errorf("Expected exact figures to validate, got: %v", err)
	}

	// A cap rate rounded to four decimals stays inside the rate band:
	// 0.0564 against 0.056421... is a 0.04% relative gap.
	report = &crew.AdvisoryReport{
		Figures:      map[string]float64{"cap_rate": 0.0564},
		FigureSource: crew.FigureSourceNarrative,
	}
	if err := p.validateReportFigures(report, metrics); err != nil {
		t.Errorf("Expected rounded cap rate to validate, got: %v", err)
	}

	// An invented NOI (engine computes 26800) fails a strict run.
	report = &crew.AdvisoryReport{
		Figures:      map[string]float64{"noi": 30000},
		FigureSource: crew.FigureSourceNarrative,
	}
	err = p.validateReportFigures(report, metrics)
	if err == nil {
		t.Error("Expected strict validation to reject an invented NOI")
	} else if !strings.Contains(err.Error(), "figure validation failed") {
		t.Errorf("Expected a figure validation error, got: %v", err)
	}

	// The default config warns but serves.
	p.SetValidationConfig(ValidationConfig{DollarTolerance: 0.5, RateTolerance: 2.0})
	if err := p.validateReportFigures(report, metrics); err != nil {
		t.Errorf("Expected non-strict validation to warn and pass, got: %v", err)
	}
}

func TestValidateReportFigures_UndefinedMetric(t *testing.T) {
	p, _, _, _ := newTestPipeline()
	p.SetValidationConfig(ValidationConfig{EnableStrictValidation: true, DollarTolerance: 0.5, RateTolerance: 2.0})

	// All cash: the engine declares DSCR not applicable, so a quoted DSCR
	// is invented even if the number looks plausible.
	allCash := referenceDeal()
	allCash.DownPaymentPercent = 100
	metrics, err := finance.ComputeWith(allCash, finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("Failed to compute metrics: %v", err)
	}

	report := &crew.AdvisoryReport{
		Figures:      map[string]float64{"noi": metrics.NOI, "dscr": 1.25},
		FigureSource: crew.FigureSourceNarrative,
	}
	if err := p.validateReportFigures(report, metrics); err == nil {
		t.Error("Expected strict validation to reject a DSCR quoted for an all-cash deal")
	}

	// Names outside the engine's figure set are reported but not judged.
	report = &crew.AdvisoryReport{
		Figures:      map[string]float64{"break_even_occupancy": 0.3431},
		FigureSource: crew.FigureSourceNarrative,
	}
	if err := p.validateReportFigures(report, metrics); err != nil {
		t.Errorf("Expected unrecognized figure names to be ignored, got: %v", err)
	}
}

func TestResolveComps_CacheFirst(t *testing.T) {
	p, comps, _, _ := newTestPipeline()
	p.compsCache = store.NewCompsCache(nil, t.TempDir())

	ctx := context.Background()
	req := EvaluationRequest{
		Address:    "12 Oak St, Springfield",
		Deal:       referenceDeal(),
		ListingURL: "http://example.com/listings/springfield",
	}

	first := p.resolveComps(ctx, req)
	if first == nil {
		t.Fatal("Expected a comps report from the first resolve")
	}
	if comps.Calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", comps.Calls)
	}

	second := p.resolveComps(ctx, req)
	if second == nil {
		t.Fatal("Expected a comps report from the snapshot")
	}
	if comps.Calls != 1 {
		t.Errorf("Expected the snapshot to serve the second resolve, got %d fetches", comps.Calls)
	}
	if second.MedianRent != first.MedianRent {
		t.Errorf("Expected median %.2f from the snapshot, got %.2f", first.MedianRent, second.MedianRent)
	}
}

func TestReportCacheKey(t *testing.T) {
	deal := referenceDeal()

	live := reportCacheKey(deal, screening.StrategyPassiveIncome, false)
	sim := reportCacheKey(deal, screening.StrategyPassiveIncome, true)

	if live == sim {
		t.Error("Expected scripted runs to use a separate cache key")
	}
	if !strings.HasSuffix(sim, ":sim") {
		t.Errorf("Expected simulation suffix on %q", sim)
	}
	if !strings.HasPrefix(live, "advisor:report:") {
		t.Errorf("Expected report key namespace, got %q", live)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("single line"); got != "single line" {
		t.Errorf("Expected 'single line', got %q", got)
	}
	if got := firstLine("first\nsecond"); got != "first" {
		t.Errorf("Expected 'first', got %q", got)
	}
	long := strings.Repeat("x", 130)
	got := firstLine(long)
	if len(got) != 123 || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected a 120-char truncation with ellipsis, got %d chars", len(got))
	}
}
