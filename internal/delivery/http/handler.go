package http

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
	"github.com/variantlens/backend/internal/usecase"
)

// latestResult retains the most recent analysis result for export snapshots.
type latestResult struct {
	mu     sync.RWMutex
	result *domain.AnalysisResult
}

func (l *latestResult) set(r *domain.AnalysisResult) {
	if r == nil {
		return
	}
	l.mu.Lock()
	l.result = r
	l.mu.Unlock()
}

func (l *latestResult) get() *domain.AnalysisResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.result
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scheduler *usecase.Scheduler
	detector  *usecase.DetectorService
	registry  *usecase.PatternRegistry
	feedback  *usecase.FeedbackService
	logger    *zap.Logger

	results     *latestResult
	unsubscribe func()
}

// NewHandler creates a new HTTP handler. It subscribes to scheduler events
// so export snapshots reflect the most recent completed analysis; call Close
// to release the subscription.
func NewHandler(
	scheduler *usecase.Scheduler,
	detector *usecase.DetectorService,
	registry *usecase.PatternRegistry,
	feedback *usecase.FeedbackService,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		scheduler: scheduler,
		detector:  detector,
		registry:  registry,
		feedback:  feedback,
		logger:    logger,
		results:   &latestResult{},
	}

	if scheduler != nil {
		events, unsubscribe := scheduler.Subscribe()
		h.unsubscribe = unsubscribe
		go h.watchEvents(events)
	}
	return h
}

// Close releases the scheduler event subscription.
func (h *Handler) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

func (h *Handler) watchEvents(events <-chan domain.Event) {
	for ev := range events {
		switch ev.Type {
		case domain.EventAnalysisComplete, domain.EventAnalysisCached:
			h.results.set(ev.Results)
		}
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	state := usecase.StateStopped
	if h.scheduler != nil {
		state = h.scheduler.State()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "variantlens-backend",
		"version":   "1.0.0",
		"scheduler": state,
	})
}

// analysisRequest is the body accepted by the run and force endpoints. A nil
// or empty product list requests a full catalog scan; nil options fall back
// to the engine defaults.
type analysisRequest struct {
	Products []domain.Product         `json:"products"`
	Options  *domain.DetectionOptions `json:"options"`
	Priority string                   `json:"priority"`
}

func (r *analysisRequest) options() domain.DetectionOptions {
	if r.Options != nil {
		return *r.Options
	}
	return domain.DefaultDetectionOptions()
}

// RunAnalysis enqueues an analysis task and returns its id immediately.
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidInput.Error()})
		return
	}

	priority := domain.PriorityNormal
	if req.Priority == string(domain.PriorityHigh) {
		priority = domain.PriorityHigh
	}

	taskID, err := h.scheduler.Schedule(req.Products, req.options(), priority)
	if err != nil {
		if errors.Is(err, domain.ErrSchedulerStopped) {
			c.JSON(http.StatusConflict, gin.H{"error": "scheduler is stopped"})
			return
		}
		h.logger.Error("failed to schedule analysis", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule analysis"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID})
}

// ForceAnalysis runs a high-priority, cache-bypassing analysis and waits for
// its result. The wait is bounded by the request context.
func (h *Handler) ForceAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidInput.Error()})
		return
	}

	result, err := h.scheduler.Force(c.Request.Context(), req.Products, req.options())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSchedulerStopped):
			c.JSON(http.StatusConflict, gin.H{"error": "scheduler is stopped"})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis did not complete in time"})
		default:
			h.logger.Error("forced analysis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.results.set(result)
	c.JSON(http.StatusOK, result)
}

// ExportAnalysis returns the persistence/download snapshot built from the
// most recent analysis and current engine statistics.
func (h *Handler) ExportAnalysis(c *gin.Context) {
	snapshot := h.detector.Export(h.results.get(), h.scheduler.Statistics())
	c.JSON(http.StatusOK, snapshot)
}

// Statistics returns cache and scheduler counters.
func (h *Handler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Statistics())
}

// StartScheduler starts the background scheduler.
func (h *Handler) StartScheduler(c *gin.Context) {
	h.scheduler.Start()
	c.JSON(http.StatusOK, gin.H{"state": h.scheduler.State()})
}

// StopScheduler stops the scheduler and discards queued tasks.
func (h *Handler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"state": h.scheduler.State()})
}

// PauseScheduler suspends the periodic re-scan timer.
func (h *Handler) PauseScheduler(c *gin.Context) {
	h.scheduler.Pause()
	c.JSON(http.StatusOK, gin.H{"state": h.scheduler.State()})
}

// ResumeScheduler re-arms the periodic re-scan timer.
func (h *Handler) ResumeScheduler(c *gin.Context) {
	h.scheduler.Resume()
	c.JSON(http.StatusOK, gin.H{"state": h.scheduler.State()})
}

// RecordFeedback applies one caller-reported outcome to the learner.
func (h *Handler) RecordFeedback(c *gin.Context) {
	var ev domain.FeedbackEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidInput.Error()})
		return
	}

	if err := h.feedback.Record(c.Request.Context(), ev); err != nil {
		if errors.Is(err, domain.ErrInvalidFeedback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to record feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// patternView is the JSON shape of a registered pattern.
type patternView struct {
	Key        string             `json:"key"`
	Expression string             `json:"expression"`
	Type       domain.VariantType `json:"type"`
	Confidence float64            `json:"confidence"`
	Learned    bool               `json:"learned"`
}

// ListPatterns returns registered custom patterns and learned-pattern state.
func (h *Handler) ListPatterns(c *gin.Context) {
	registered := h.registry.Patterns()
	views := make([]patternView, len(registered))
	for i, p := range registered {
		views[i] = patternView{
			Key:        p.Key,
			Expression: p.Expression,
			Type:       p.Type,
			Confidence: p.Confidence,
			Learned:    p.Learned,
		}
	}

	learned := []domain.LearnedPattern{}
	if h.feedback != nil {
		learned = h.feedback.Patterns()
	}

	c.JSON(http.StatusOK, gin.H{
		"patterns": views,
		"learned":  learned,
	})
}

// registerPatternRequest is the body accepted by the pattern registration
// endpoint.
type registerPatternRequest struct {
	Key        string             `json:"key"`
	Expression string             `json:"expression"`
	Type       domain.VariantType `json:"type"`
	Confidence float64            `json:"confidence"`
}

// RegisterPattern adds a user-supplied extraction pattern.
func (h *Handler) RegisterPattern(c *gin.Context) {
	var req registerPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidInput.Error()})
		return
	}

	if req.Type == "" {
		req.Type = domain.VariantCustom
	}
	if req.Confidence <= 0 {
		req.Confidence = 1.0
	}

	if err := h.registry.Register(req.Key, req.Expression, req.Type, req.Confidence, false); err != nil {
		if errors.Is(err, domain.ErrInvalidPattern) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to register pattern", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register pattern"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": req.Key})
}
