package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/pathutil"
	"github.com/causalkit/oster/internal/rank"
	"github.com/causalkit/oster/internal/store"
	"github.com/causalkit/oster/internal/synth"
)

// registerTools registers the analysis tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "oster_generate",
		Description: "Generate a synthetic benchmark dataset with a known treatment effect and write it to a CSV file",
	}, s.handleGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "oster_run",
		Description: "Run a specification curve over a CSV dataset: rank candidate controls, then estimate the treatment effect and its sensitivity statistic for each growing control set",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "oster_runs",
		Description: "List persisted specification-curve runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "oster_show",
		Description: "Show one persisted run with its full step-by-step results",
	}, s.handleShow)

	return nil
}

// registerResources registers read-only views of the run store.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         "oster://runs/recent",
		Name:        "oster-recent-runs",
		Description: "Summaries of the most recent specification-curve runs.",
		MIMEType:    "text/markdown",
	}, s.handleRecentRunsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: "oster://run/{id}",
		Name:        "oster-run-detail",
		Description: "Full step-by-step results for one persisted run.",
		MIMEType:    "text/markdown",
	}, s.handleRunDetailResource)
}

// resolveUnderRoot joins a possibly relative path onto the project root and
// rejects anything that escapes it.
func (s *Server) resolveUnderRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	if err := pathutil.ValidatePath(path, []string{s.root}); err != nil {
		return "", err
	}
	return path, nil
}

// handleGenerate implements the oster_generate tool.
func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("oster_generate", start, retErr, map[string]string{
			"path": pathutil.RedactPath(args.Path),
		})
	}()

	if err := s.limits.Check("oster_generate"); err != nil {
		return nil, GenerateOutput{}, err
	}

	path, err := s.resolveUnderRoot(args.Path)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	cfg := synth.DefaultConfig()
	if args.Rows > 0 {
		cfg.N = args.Rows
	}
	if args.Relevant > 0 {
		cfg.Relevant = args.Relevant
	}
	if args.Irrelevant > 0 {
		cfg.Irrelevant = args.Irrelevant
	}
	if args.ATE != 0 {
		cfg.ATE = args.ATE
	}
	if args.Confounding != 0 {
		cfg.Confounding = args.Confounding
	}
	if args.Noise != 0 {
		cfg.Noise = args.Noise
	}
	if args.Seed != 0 {
		cfg.Seed = args.Seed
	}

	d, truth, err := synth.Generate(cfg)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("failed to generate dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := d.WriteCSV(path); err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("failed to write dataset: %w", err)
	}

	return nil, GenerateOutput{
		Path:       path,
		Rows:       d.Len(),
		Columns:    len(d.Names()),
		Relevant:   truth.Relevant,
		Irrelevant: truth.Irrelevant,
		TrueATE:    truth.ATE,
		Message:    fmt.Sprintf("Wrote %d rows with %d covariates to %s", d.Len(), len(d.Names())-2, pathutil.RedactPath(path)),
	}, nil
}

// handleRun implements the oster_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("oster_run", start, retErr, map[string]string{
			"data":      pathutil.RedactPath(args.Data),
			"outcome":   args.Outcome,
			"treatment": args.Treatment,
		})
	}()

	if err := s.limits.Check("oster_run"); err != nil {
		return nil, RunOutput{}, err
	}

	if args.Outcome == "" || args.Treatment == "" {
		return nil, RunOutput{}, fmt.Errorf("outcome and treatment are required")
	}
	if args.RankBy != "" && args.RankBy != "outcome" && args.RankBy != "treatment" {
		return nil, RunOutput{}, fmt.Errorf("rank_by must be \"outcome\" or \"treatment\", got %q", args.RankBy)
	}
	path, err := s.resolveUnderRoot(args.Data)
	if err != nil {
		return nil, RunOutput{}, err
	}

	d, err := dataset.FromCSV(path)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to read dataset: %w", err)
	}

	controls := args.Controls
	if len(controls) == 0 {
		controls = d.Covariates(args.Outcome, args.Treatment)
	}
	ranking, err := rank.OLSRanker{}.Rank(d, controls, args.Outcome, args.Treatment)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to rank controls: %w", err)
	}

	ranked := ranking.ByOutcome
	if args.RankBy == "treatment" {
		ranked = ranking.ByTreatment
	}

	runID := uuid.NewString()
	runCfg := s.conf.CurveConfig(args.Outcome, args.Treatment, ranked)
	runCfg.MaxSteps = args.MaxSteps
	runCfg.RunID = runID
	if args.Folds > 0 {
		runCfg.DML.Folds = args.Folds
	}
	if args.BetaHyp != 0 {
		runCfg.Delta.BetaHyp = args.BetaHyp
	}
	if args.RMax != 0 {
		runCfg.Delta.RMax = args.RMax
	}
	if args.Seed != 0 {
		runCfg.Seed = args.Seed
	}

	runner := &curve.Runner{}
	c, err := runner.Run(ctx, d, runCfg)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to fit curve: %w", err)
	}

	out := RunOutput{
		N:       d.Len(),
		Ranked:  ranked,
		Steps:   stepSummariesFromCurve(c),
		Message: fmt.Sprintf("Fitted %d specifications over %d ranked controls", len(c.Steps), len(ranked)),
	}

	if !args.NoSave {
		snapshot, _ := json.Marshal(s.conf.Analysis)
		run := &store.Run{
			ID:        runID,
			Dataset:   path,
			DataHash:  hashFile(path),
			N:         d.Len(),
			Outcome:   args.Outcome,
			Treatment: args.Treatment,
			BetaHyp:   runCfg.Delta.BetaHyp,
			RMax:      runCfg.Delta.RMax,
			Seed:      runCfg.Seed,
			Config:    string(snapshot),
			Steps:     store.StepsFromCurve(c),
		}
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, RunOutput{}, fmt.Errorf("failed to save run: %w", err)
		}
		out.RunID = runID
	}

	return nil, out, nil
}

// handleRuns implements the oster_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("oster_runs", start, retErr, nil)
	}()

	if err := s.limits.Check("oster_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	summaries, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, len(summaries))
	for i, sum := range summaries {
		items[i] = RunListItem{
			ID:        sum.ID,
			CreatedAt: sum.CreatedAt,
			Dataset:   sum.Dataset,
			Outcome:   sum.Outcome,
			Treatment: sum.Treatment,
			N:         sum.N,
			Steps:     sum.Steps,
		}
	}
	return nil, RunsOutput{Runs: items, Count: len(items)}, nil
}

// handleShow implements the oster_show tool.
func (s *Server) handleShow(ctx context.Context, req *sdk.CallToolRequest, args ShowInput) (_ *sdk.CallToolResult, _ ShowOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("oster_show", start, retErr, map[string]string{"id": args.ID})
	}()

	if err := s.limits.Check("oster_show"); err != nil {
		return nil, ShowOutput{}, err
	}

	if args.ID == "" {
		return nil, ShowOutput{}, fmt.Errorf("id is required")
	}
	run, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		return nil, ShowOutput{}, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, ShowOutput{}, fmt.Errorf("run not found: %s", args.ID)
	}

	return nil, ShowOutput{
		ID:        run.ID,
		CreatedAt: run.CreatedAt,
		Dataset:   run.Dataset,
		DataHash:  run.DataHash,
		Outcome:   run.Outcome,
		Treatment: run.Treatment,
		N:         run.N,
		BetaHyp:   run.BetaHyp,
		RMax:      run.RMax,
		Seed:      run.Seed,
		Steps:     stepSummariesFromRecords(run.Steps),
	}, nil
}

// handleRecentRunsResource renders recent runs as a markdown summary.
func (s *Server) handleRecentRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	summaries, err := s.store.ListRuns(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Recent Runs\n\n")
	if len(summaries) == 0 {
		sb.WriteString("No runs recorded yet.\n")
	} else {
		sb.WriteString("| ID | Created | Dataset | Outcome | Treatment | Steps |\n")
		sb.WriteString("|----|---------|---------|---------|-----------|-------|\n")
		for _, sum := range summaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d |\n",
				sum.ID, sum.CreatedAt.Format("2006-01-02 15:04"),
				pathutil.RedactPath(sum.Dataset), sum.Outcome, sum.Treatment, sum.Steps))
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "oster://runs/recent",
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleRunDetailResource renders one run's full results as markdown.
func (s *Server) handleRunDetailResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	const prefix = "oster://run/"
	if !strings.HasPrefix(uri, prefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, prefix)
	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Run %s\n\n", run.ID))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", run.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- **Dataset:** %s (%d rows)\n", pathutil.RedactPath(run.Dataset), run.N))
	sb.WriteString(fmt.Sprintf("- **Outcome / Treatment:** %s / %s\n", run.Outcome, run.Treatment))
	sb.WriteString(fmt.Sprintf("- **BetaHyp / RMax:** %.4g / %.4g\n\n", run.BetaHyp, run.RMax))

	sb.WriteString("| Step | Controls | Estimate | SE | R2 | Delta |\n")
	sb.WriteString("|------|----------|----------|----|----|-------|\n")
	for _, st := range run.Steps {
		delta := fmt.Sprintf("%.4f", st.Delta)
		if st.Undefined {
			delta = "undefined"
		}
		sb.WriteString(fmt.Sprintf("| %d | %d | %.4f | %.4f | %.4f | %s |\n",
			st.Index, len(st.Controls), st.ATE, st.SE, st.R2, delta))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// stepSummariesFromCurve flattens a fitted curve for tool output.
func stepSummariesFromCurve(c *curve.Curve) []StepSummary {
	steps := make([]StepSummary, len(c.Steps))
	for i, st := range c.Steps {
		steps[i] = StepSummary{
			Index:     st.Index,
			Controls:  st.Controls,
			ATE:       st.Estimate.ATE,
			SE:        st.Estimate.SE,
			R2:        st.Estimate.R2,
			Delta:     st.Delta.Delta,
			Undefined: st.Delta.Undefined,
		}
	}
	return steps
}

// stepSummariesFromRecords flattens persisted steps for tool output.
func stepSummariesFromRecords(records []store.StepRecord) []StepSummary {
	steps := make([]StepSummary, len(records))
	for i, rec := range records {
		steps[i] = StepSummary{
			Index:     rec.Index,
			Controls:  rec.Controls,
			ATE:       rec.ATE,
			SE:        rec.SE,
			R2:        rec.R2,
			Delta:     rec.Delta,
			Undefined: rec.Undefined,
		}
	}
	return steps
}

// hashFile returns the hex SHA-256 of a file's contents, or "" when the
// file cannot be read. The hash records dataset provenance, so a read
// failure here is not fatal.
func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
