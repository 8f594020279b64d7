// Package api exposes the statistics engine over JSON endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"expstat/domain/stats"
	"expstat/internal/errors"
	"expstat/internal/stats/engine"
)

// StatisticsHandler serves the significance and sample-size endpoints.
type StatisticsHandler struct {
	defaultConfidence float64
}

// NewStatisticsHandler creates a handler. defaultConfidence is used when a
// request omits confidence_level.
func NewStatisticsHandler(defaultConfidence float64) *StatisticsHandler {
	if defaultConfidence <= 0 || defaultConfidence >= 1 {
		defaultConfidence = engine.DefaultConfidenceLevel
	}
	return &StatisticsHandler{defaultConfidence: defaultConfidence}
}

// Register mounts the API routes.
func (h *StatisticsHandler) Register(r gin.IRouter) {
	r.GET("/api/health", h.Health)
	r.POST("/api/statistics/significance", h.CalculateSignificance)
	r.POST("/api/statistics/sample-size", h.CalculateSampleSize)
}

// Health reports service liveness.
func (h *StatisticsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "expstat-api",
	})
}

type significanceRequest struct {
	Control         stats.GroupData `json:"control"`
	Treatment       stats.GroupData `json:"treatment"`
	MetricType      string          `json:"metric_type"`
	ConfidenceLevel *float64        `json:"confidence_level"`
}

type significanceResponse struct {
	IsSignificant bool    `json:"is_significant"`
	PValue        float64 `json:"p_value"`
	EffectSize    float64 `json:"effect_size"`
	Power         float64 `json:"power"`
	Conclusion    string  `json:"conclusion"`
}

// CalculateSignificance runs the appropriate two-sample test for a
// control/treatment pair.
func (h *StatisticsHandler) CalculateSignificance(c *gin.Context) {
	var req significanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	confidence := h.defaultConfidence
	if req.ConfidenceLevel != nil {
		confidence = *req.ConfidenceLevel
	}

	eng, err := engine.New(confidence)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := eng.AnalyzeExperimentResults(req.Control, req.Treatment, req.MetricType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, significanceResponse{
		IsSignificant: result.IsSignificant,
		PValue:        result.PValue,
		EffectSize:    result.EffectSize,
		Power:         result.Power,
		Conclusion:    result.Conclusion,
	})
}

type sampleSizeRequest struct {
	BaselineRate *float64 `json:"baseline_rate"`
	ExpectedLift *float64 `json:"expected_lift"`
	Power        *float64 `json:"power"`
}

type sampleSizeResponse struct {
	SampleSizePerVariant int `json:"sample_size_per_variant"`
	TotalSampleSize      int `json:"total_sample_size"`
}

// CalculateSampleSize plans the per-variant sample size for an expected lift.
// Total assumes a fixed 1:1 allocation between variants.
func (h *StatisticsHandler) CalculateSampleSize(c *gin.Context) {
	var req sampleSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.BaselineRate == nil || req.ExpectedLift == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline_rate and expected_lift are required"})
		return
	}

	power := engine.DefaultPowerTarget
	if req.Power != nil {
		power = *req.Power
	}

	eng, err := engine.New(h.defaultConfidence)
	if err != nil {
		respondError(c, err)
		return
	}

	perVariant, err := eng.MinimumSampleSize(*req.BaselineRate, *req.ExpectedLift, power)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sampleSizeResponse{
		SampleSizePerVariant: perVariant,
		TotalSampleSize:      perVariant * 2,
	})
}

// respondError maps the error taxonomy onto HTTP statuses: caller-input
// errors are 400s, everything else is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.IsValidation(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}
