package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"expstat/adapters/analytics"
	"expstat/domain/experiment"
	"expstat/internal/analysis"
	"expstat/internal/stats/engine"
)

// ExperimentHandler serves request-scoped experiment analysis: the caller
// ships the experiment definition together with the raw analytics payloads
// for the experiment and baseline windows.
type ExperimentHandler struct {
	confidence  float64
	concurrency int
	parser      *analytics.ResponseParser
}

// NewExperimentHandler creates a handler. concurrency bounds parallel
// secondary-metric comparisons per request.
func NewExperimentHandler(confidence float64, concurrency int) *ExperimentHandler {
	if confidence <= 0 || confidence >= 1 {
		confidence = engine.DefaultConfidenceLevel
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExperimentHandler{
		confidence:  confidence,
		concurrency: concurrency,
		parser:      analytics.NewResponseParser(analytics.ParserConfig{}),
	}
}

// Register mounts the experiment routes.
func (h *ExperimentHandler) Register(r gin.IRouter) {
	r.POST("/api/experiments/analyze", h.AnalyzeExperiment)
}

type analyzeRequest struct {
	Experiment        experiment.Experiment `json:"experiment"`
	Analytics         json.RawMessage       `json:"analytics"`
	BaselineAnalytics json.RawMessage       `json:"baseline_analytics"`
}

// AnalyzeExperiment runs the full analysis pipeline over caller-supplied
// analytics payloads and returns the analysis record.
func (h *ExperimentHandler) AnalyzeExperiment(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	exp := req.Experiment
	if exp.Metrics.Primary == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "experiment.metrics.primary is required"})
		return
	}
	if _, err := experiment.ParseComparisonOperator(string(exp.Criteria.Operator)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Analytics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analytics payload is required"})
		return
	}
	if exp.HasBaseline() && len(req.BaselineAnalytics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline_analytics is required when a baseline window is set"})
		return
	}

	metrics := exp.Metrics.All()
	source := analytics.NewStaticSource()

	rows, err := h.parser.ParseRows(req.Analytics, metrics)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analytics payload: " + err.Error()})
		return
	}
	source.AddWindow(exp.StartDate, exp.EndDate, rows)

	if exp.HasBaseline() {
		baseRows, err := h.parser.ParseRows(req.BaselineAnalytics, metrics)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid baseline_analytics payload: " + err.Error()})
			return
		}
		source.AddWindow(exp.BaselineStart, exp.BaselineEnd, baseRows)
	}

	eng, err := engine.New(h.confidence)
	if err != nil {
		respondError(c, err)
		return
	}

	analyzer := analysis.NewAnalyzer(source, eng, h.concurrency)
	result, err := analyzer.AnalyzeExperiment(c.Request.Context(), &exp)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
