// Package pipeline wires the deterministic engine, market data, screening,
// the advisory crew and persistence into a single evaluation run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/crew"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"

	"github.com/google/uuid"
)

const (
	// compsTimeout bounds the listings fetch: a slow site must not stall
	// the whole evaluation.
	compsTimeout = 45 * time.Second

	// defaultCompsMaxAge is how long a cached comps snapshot stays
	// servable before the pipeline refetches. Rental listings churn on
	// the order of weeks, not hours.
	defaultCompsMaxAge = 7 * 24 * time.Hour
)

// CompsSource fetches rental comparables for a listing page.
// *market.CompsClient satisfies it; tests inject canned reports.
type CompsSource interface {
	FetchComps(ctx context.Context, url, location string, dealMonthlyRent float64) (*market.CompsReport, error)
}

// EvaluationStore archives completed evaluation results.
// *store.EvaluationRepo satisfies it.
type EvaluationStore interface {
	Save(ctx context.Context, record *store.EvaluationRecord) error
}

// ValidationConfig defines thresholds and behavior for the figure
// consistency check run against every advisory report.
type ValidationConfig struct {
	EnableStrictValidation bool    // If true, out-of-tolerance figures fail the run
	DollarTolerance        float64 // Allowed gap for dollar figures, percent (default 0.5)
	RateTolerance          float64 // Allowed gap for rates and ratios, percent (default 2.0)
}

// EvaluationRequest describes one deal to run through the pipeline.
type EvaluationRequest struct {
	Address    string               `json:"address"`
	Deal       finance.PropertyDeal `json:"deal"`
	Strategy   screening.Strategy   `json:"strategy"`
	ListingURL string               `json:"listing_url,omitempty"`

	// FastPath skips the advisory crew entirely: engine figures and
	// screening only.
	FastPath bool `json:"fast_path,omitempty"`

	// Simulation runs the crew with scripted agents instead of live
	// models.
	Simulation bool `json:"simulation,omitempty"`
}

// EvaluationResult bundles everything one pipeline run produced. The
// advisory report is nil on the fast path.
type EvaluationResult struct {
	EvaluationID    string                 `json:"evaluation_id"`
	Address         string                 `json:"address"`
	Strategy        screening.Strategy     `json:"strategy"`
	Deal            finance.PropertyDeal   `json:"deal"`
	Metrics         *finance.MetricsResult `json:"metrics"`
	Exit            *finance.ExitAnalysis  `json:"exit_analysis,omitempty"`
	Screening       *screening.Result      `json:"screening"`
	Comps           *market.CompsReport    `json:"comps,omitempty"`
	Report          *crew.AdvisoryReport   `json:"report,omitempty"`
	ReportFromCache bool                   `json:"report_from_cache,omitempty"`
	DurationMS      int64                  `json:"duration_ms"`
}

// AdvisorPipeline manages the end-to-end evaluation flow:
// engine -> comps -> screening -> advisory crew -> validation -> archive.
type AdvisorPipeline struct {
	agentManager *agent.Manager
	comps        CompsSource
	compsCache   *store.CompsCache
	reportCache  store.CacheRepository
	repo         EvaluationStore

	assumptions      finance.Assumptions
	validationConfig ValidationConfig
	compsMaxAge      time.Duration
}

// NewAdvisorPipeline wires the production dependencies: the live comps
// client, the comps snapshot cache, the configured report cache and, when a
// database pool is up, the evaluation archive.
func NewAdvisorPipeline(mgr *agent.Manager) *AdvisorPipeline {
	p := NewAdvisorPipelineWithDeps(mgr, market.NewCompsClient(nil),
		store.NewCompsCache(store.GetPool(), ""), store.NewReportCache(), nil)
	if store.GetPool() != nil {
		p.repo = store.NewEvaluationRepo()
	}
	return p
}

// NewAdvisorPipelineWithDeps wires explicit dependencies, for tests and
// callers that manage their own caches. Any dependency may be nil; the
// matching stage is skipped.
func NewAdvisorPipelineWithDeps(mgr *agent.Manager, comps CompsSource, compsCache *store.CompsCache, reportCache store.CacheRepository, repo EvaluationStore) *AdvisorPipeline {
	return &AdvisorPipeline{
		agentManager: mgr,
		comps:        comps,
		compsCache:   compsCache,
		reportCache:  reportCache,
		repo:         repo,
		assumptions:  finance.DefaultAssumptions(),
		validationConfig: ValidationConfig{
			EnableStrictValidation: false, // Default: log warnings but serve the report
			DollarTolerance:        0.5,
			RateTolerance:          2.0,
		},
		compsMaxAge: defaultCompsMaxAge,
	}
}

// SetRepository allows injecting a custom archive (e.g., for testing).
func (p *AdvisorPipeline) SetRepository(repo EvaluationStore) {
	p.repo = repo
}

// SetValidationConfig updates the figure validation configuration.
func (p *AdvisorPipeline) SetValidationConfig(config ValidationConfig) {
	p.validationConfig = config
}

// SetAssumptions replaces the engine assumptions for subsequent runs.
func (p *AdvisorPipeline) SetAssumptions(a finance.Assumptions) {
	p.assumptions = a
}

// Run executes the full pipeline for a single deal. Engine and screening
// failures are fatal; comps and archival degrade with a warning. The
// returned result always carries the deterministic figures, whether or not
// a narrative report was produced.
func (p *AdvisorPipeline) Run(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = screening.StrategyPassiveIncome
	}

	fmt.Printf("Starting evaluation pipeline for %s (%s)...\n", req.Address, strategy)
	start := time.Now()

	// 0. Boundary validation. Returned as-is so callers can match
	// *finance.ValidationError and blame the input, not the engine.
	if err := req.Deal.Validate(); err != nil {
		return nil, err
	}

	result := &EvaluationResult{
		EvaluationID: uuid.New().String(),
		Address:      req.Address,
		Strategy:     strategy,
		Deal:         req.Deal,
	}

	// 1. Deterministic engine
	metrics, err := finance.ComputeWith(req.Deal, p.assumptions)
	if err != nil {
		return nil, fmt.Errorf("metrics stage failed: %w", err)
	}
	result.Metrics = metrics
	fmt.Printf("[METRICS] NOI $%.2f/yr | cap rate %.2f%% | cash flow $%.2f/mo\n",
		metrics.NOI, metrics.CapRate*100, metrics.MonthlyCashFlow)

	// 2. Exit analysis
	exit, err := finance.AnalyzeExitWith(req.Deal, p.assumptions)
	if err != nil {
		fmt.Printf("Warning: exit analysis failed: %v. Continuing without hold projection.\n", err)
	} else {
		result.Exit = exit
		fmt.Printf("[EXIT] %d-year hold: total profit $%.2f\n", exit.HoldPeriodYears, exit.TotalProfit)
	}

	// 3. Rental comps
	result.Comps = p.resolveComps(ctx, req)

	// 4. Screening
	scr := screening.Screen(metrics, strategy)
	result.Screening = scr
	fmt.Printf("[SCREEN] %s risk | alignment %.1f/10 | score %d/100 -> %s\n",
		scr.RiskRating, scr.AlignmentScore, scr.Score, scr.QuickVerdict)

	if req.FastPath {
		result.DurationMS = time.Since(start).Milliseconds()
		fmt.Printf("Fast-path evaluation completed for %s in %v\n", req.Address, time.Since(start))
		return result, nil
	}

	// 5. Advisory report: cache first, then a full crew run. A cached
	// report is revalidated against the engine figures just computed; in
	// strict mode a stale entry is regenerated instead of served.
	cacheKey := reportCacheKey(req.Deal, strategy, req.Simulation)
	if cached := p.loadCachedReport(ctx, cacheKey); cached != nil {
		if err := p.validateReportFigures(cached, metrics); err != nil {
			fmt.Printf("Warning: cached report failed figure validation, regenerating: %v\n", err)
		} else {
			result.Report = cached
			result.ReportFromCache = true
			fmt.Printf("[REPORT] Reusing cached advisory report.\n")
		}
	}

	if result.Report == nil {
		report, err := p.runCrew(ctx, result.EvaluationID, req, strategy, result.Comps)
		if err != nil {
			return nil, fmt.Errorf("advisory crew failed: %w", err)
		}
		if err := p.validateReportFigures(report, metrics); err != nil {
			return nil, err
		}
		result.Report = report
		p.cacheReport(ctx, cacheKey, report)
	}

	// 6. Archive
	p.persist(ctx, result)

	result.DurationMS = time.Since(start).Milliseconds()
	fmt.Printf("Pipeline completed for %s in %v\n", req.Address, time.Since(start))
	return result, nil
}

// resolveComps returns rental comps for the listing, serving a cached
// snapshot when one is fresh enough. Comps are context, not inputs: any
// failure degrades to an evaluation without market color.
func (p *AdvisorPipeline) resolveComps(ctx context.Context, req EvaluationRequest) *market.CompsReport {
	if req.ListingURL == "" {
		return nil
	}

	if p.compsCache != nil {
		cached, err := p.compsCache.Get(ctx, req.ListingURL, p.compsMaxAge)
		if err == nil && cached != nil {
			fmt.Printf("[COMPS] Using cached snapshot: %d listings for %s\n",
				cached.SampleSize, cached.Location)
			return cached
		}
	}

	if p.comps == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, compsTimeout)
	defer cancel()

	report, err := p.comps.FetchComps(fetchCtx, req.ListingURL, req.Address, req.Deal.MonthlyRent)
	if err != nil {
		fmt.Printf("Warning: comps fetch failed: %v. Continuing without market context.\n", err)
		return nil
	}
	fmt.Printf("[COMPS] Fetched %d comps | median $%.0f/mo | subject rent is %s\n",
		report.SampleSize, report.MedianRent, report.RentPosition)

	if p.compsCache != nil {
		if err := p.compsCache.Save(ctx, req.ListingURL, report); err != nil {
			fmt.Printf("Warning: failed to cache comps snapshot: %v\n", err)
		}
	}
	return report
}

// runCrew executes the advisory crew synchronously and returns its final
// report. The crew receives the already-resolved comps instead of a listing
// URL, and no repo of its own: on this path the pipeline owns persistence.
func (p *AdvisorPipeline) runCrew(ctx context.Context, id string, req EvaluationRequest, strategy screening.Strategy, comps *market.CompsReport) (*crew.AdvisoryReport, error) {
	orch := crew.NewOrchestrator(id, req.Address, req.Deal, strategy, "", req.Simulation, p.agentManager, nil)
	if comps != nil {
		orch.Shared.Comps = comps
	}

	// Tap the message stream so a CLI run shows the stages advancing.
	ch, _ := orch.Subscribe()
	drained := make(chan struct{})
	go func() {
		for msg := range ch {
			fmt.Printf("  [CREW] %s: %s\n", msg.AgentName, firstLine(msg.Content))
		}
		close(drained)
	}()

	orch.Run(ctx)

	orch.Unsubscribe(ch)
	<-drained

	if orch.Status != crew.StatusCompleted {
		return nil, fmt.Errorf("evaluation %s ended with status %s", id, orch.Status)
	}
	if orch.FinalReport == nil {
		return nil, fmt.Errorf("evaluation %s completed without a report", id)
	}
	return orch.FinalReport, nil
}

// figureOrder fixes the validation print order; map iteration would
// scramble the log between runs. The names mirror the engine figure map.
var figureOrder = []string{
	"noi",
	"cap_rate",
	"monthly_cash_flow",
	"annual_cash_flow",
	"cash_on_cash_return",
	"dscr",
	"estimated_irr",
}

// validateReportFigures cross-checks the figures quoted in an advisory
// report against the deterministic engine. The crew is prompted to quote
// engine numbers verbatim, but a model can still round or invent; this is
// the last check before a figure reaches a caller.
func (p *AdvisorPipeline) validateReportFigures(report *crew.AdvisoryReport, metrics *finance.MetricsResult) error {
	fmt.Printf("\n--- Figure validation (source: %s) ---\n", report.FigureSource)
	engine := crew.EngineFigures(metrics)

	mismatches := 0
	known := make(map[string]bool, len(figureOrder))
	for _, name := range figureOrder {
		known[name] = true
		reported, ok := report.Figures[name]
		if !ok {
			continue
		}

		expected, ok := engine[name]
		if !ok {
			// The engine declared this metric undefined for the deal
			// shape, so any quoted value for it is invented.
			fmt.Printf("  [FIG] %s Reported: %.4f | Engine: undefined\n", name, reported)
			p.flag(fmt.Sprintf("%s quoted but undefined for this deal shape", name))
			mismatches++
			continue
		}

		diff := math.Abs(reported - expected)
		var diffPercent float64
		if math.Abs(expected) > 0 {
			diffPercent = (diff / math.Abs(expected)) * 100
		}

		fmt.Printf("  [FIG] %s Engine: %.4f | Reported: %.4f | Diff: %.4f (%.2f%%)\n",
			name, expected, reported, diff, diffPercent)
		if !p.checkTolerance(name, diffPercent, diff, p.toleranceFor(name)) {
			mismatches++
		}
	}

	var unknown []string
	for name := range report.Figures {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		fmt.Printf("  [FIG] Ignoring %d figure(s) with no engine counterpart: %s\n",
			len(unknown), strings.Join(unknown, ", "))
	}

	if mismatches > 0 && p.validationConfig.EnableStrictValidation {
		return fmt.Errorf("figure validation failed: %d figure(s) outside tolerance", mismatches)
	}
	return nil
}

// checkTolerance logs one figure check. Returns false when the figure is
// out of tolerance.
func (p *AdvisorPipeline) checkTolerance(label string, diffPercent float64, absoluteDiff float64, tolerance float64) bool {
	if diffPercent > tolerance {
		p.flag(fmt.Sprintf("%s mismatch > %.2f%% tolerance (Diff: %.4f)", label, tolerance, absoluteDiff))
		return false
	}
	fmt.Printf("    ✅ %s Valid\n", label)
	return true
}

// flag prints one validation failure at the severity the config selects.
func (p *AdvisorPipeline) flag(msg string) {
	if p.validationConfig.EnableStrictValidation {
		fmt.Printf("    ❌ CRITICAL: %s\n", msg)
	} else {
		fmt.Printf("    ⚠️ WARNING: %s\n", msg)
	}
}

// toleranceFor picks the tolerance band for a figure. Dollar figures come
// straight off the engine so the band is tight; rates pass through model
// rounding (0.0564 for 0.056421...) so the band is looser.
func (p *AdvisorPipeline) toleranceFor(name string) float64 {
	switch name {
	case "cap_rate", "cash_on_cash_return", "dscr", "estimated_irr":
		return p.validationConfig.RateTolerance
	}
	return p.validationConfig.DollarTolerance
}

// reportCacheKey derives the cache key for an advisory report. Scripted
// runs are keyed separately so a demo report can never shadow a live one.
func reportCacheKey(deal finance.PropertyDeal, strategy screening.Strategy, simulation bool) string {
	key := store.ReportKey(deal, string(strategy))
	if simulation {
		key += ":sim"
	}
	return key
}

func (p *AdvisorPipeline) loadCachedReport(ctx context.Context, key string) *crew.AdvisoryReport {
	if p.reportCache == nil {
		return nil
	}
	raw, ok := p.reportCache.Get(ctx, key)
	if !ok {
		return nil
	}

	var report crew.AdvisoryReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		fmt.Printf("Warning: discarding unreadable cached report: %v\n", err)
		return nil
	}
	return &report
}

func (p *AdvisorPipeline) cacheReport(ctx context.Context, key string, report *crew.AdvisoryReport) {
	if p.reportCache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := p.reportCache.Set(ctx, key, string(raw)); err != nil {
		fmt.Printf("Warning: failed to cache advisory report: %v\n", err)
	}
}

// persist archives the run. The archive is a side channel: losing it is
// logged but never invalidates a completed evaluation.
func (p *AdvisorPipeline) persist(ctx context.Context, result *EvaluationResult) {
	if p.repo == nil {
		return
	}

	record := &store.EvaluationRecord{
		EvaluationID: result.EvaluationID,
		Address:      result.Address,
		Strategy:     string(result.Strategy),
		Deal:         result.Deal,
		Metrics:      result.Metrics,
		Exit:         result.Exit,
		Screening:    result.Screening,
		Comps:        result.Comps,
		CompletedAt:  time.Now(),
	}
	if result.Report != nil {
		if raw, err := json.Marshal(result.Report); err == nil {
			record.Report = raw
		}
	}

	if err := p.repo.Save(ctx, record); err != nil {
		fmt.Printf("Warning: failed to archive evaluation %s: %v\n", result.EvaluationID, err)
		return
	}
	fmt.Printf("[ARCHIVE] Stored evaluation %s\n", result.EvaluationID)
}

// firstLine truncates a crew message for the single-line pipeline log.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 120
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
