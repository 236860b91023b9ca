package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"

	"prizedraw/internal/draw"
	"prizedraw/internal/models"
	"prizedraw/internal/sequencer"
	"prizedraw/internal/services"
	"prizedraw/internal/transfer"
)

const tenantKey = "tenantID"

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service *services.LotteryService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterPublicRoutes registers routes that need no tenant.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterTenantRoutes registers all the lottery routes on a tenant-scoped group.
func (h *HTTPHandler) RegisterTenantRoutes(rg *gin.RouterGroup) {
	api := rg.Group("/api")

	api.GET("/state", h.GetOverview)
	api.GET("/setup", h.GetSetup)
	api.POST("/lists", h.AddList)
	api.POST("/lists/:listID/participants", h.AddParticipant)
	api.POST("/lists/:listID/participants/csv", h.UploadParticipantsCSV)
	api.POST("/prizes", h.AddPrize)
	api.POST("/prizes/csv", h.UploadPrizesCSV)
	api.DELETE("/prizes/:prizeID", h.RemovePrize)
	api.PUT("/settings", h.UpdateSettings)

	api.POST("/draws", h.StartDraw)
	api.GET("/draws/current", h.CurrentDraw)
	api.POST("/draws/current/next", h.DrawNext)
	api.POST("/draws/current/all", h.DrawAll)
	api.PUT("/draws/current/absent/:participantID", h.SetAbsent)
	api.POST("/draws/current/redraw", h.Redraw)
	api.DELETE("/draws/current", h.CloseDraw)
	api.GET("/presentation", h.GetPresentation)
	api.POST("/reset", h.Reset)

	api.GET("/results", h.GetResults)
	api.GET("/results/csv", h.ExportResultsCSV)
	api.GET("/config", h.ExportConfig)
	api.POST("/config", h.ImportConfig)
}

// TenantMiddleware gives every browser its own lottery. The tenant id lives
// in the cookie session and is created on first visit.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		tenantID, _ := session.Get(tenantKey).(string)
		if tenantID == "" {
			tenantID = uuid.NewString()
			session.Set(tenantKey, tenantID)
			if err := session.Save(); err != nil {
				logger.Errorf("Error saving tenant session: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
				return
			}
			logger.Infof("New tenant session: %s", tenantID)
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

func tenant(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// fail maps service errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrPrizeNotFound), errors.Is(err, services.ErrListNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNoActiveDraw),
		errors.Is(err, draw.ErrPrizeComplete),
		errors.Is(err, draw.ErrInsufficientPool),
		errors.Is(err, sequencer.ErrWrongPhase):
		status = http.StatusConflict
	case errors.Is(err, draw.ErrInvalidConfiguration),
		errors.Is(err, draw.ErrUnknownParticipant),
		errors.Is(err, transfer.ErrMalformedDocument):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type listRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
}

type participantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
}

type prizeRequest struct {
	Name        string `json:"name" binding:"required"`
	DrawCount   int    `json:"drawCount" binding:"required,min=1"`
	BoundListID string `json:"participantListId"`
}

type settingsRequest struct {
	AllowRepeat bool   `json:"allowRepeat"`
	Title       string `json:"title"`
}

type startRequest struct {
	PrizeID string `json:"prizeId" binding:"required"`
}

type absentRequest struct {
	Absent *bool `json:"absent" binding:"required"`
}

type redrawRequest struct {
	ParticipantIDs []string `json:"participantIds"`
}

// GetOverview returns every prize with its progress.
func (h *HTTPHandler) GetOverview(c *gin.Context) {
	ov, err := h.service.Overview(tenant(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

// GetSetup returns prizes, participant lists and settings.
func (h *HTTPHandler) GetSetup(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot(tenant(c)))
}

func (h *HTTPHandler) AddList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.service.AddList(tenant(c), req.ID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.service.AddParticipant(tenant(c), c.Param("listID"), req.ID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UploadParticipantsCSV handles the CSV upload for participants.
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("error retrieving file: %w", err))
		return
	}
	defer file.Close()

	added, err := h.service.ImportParticipantsCSV(tenant(c), c.Param("listID"), file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (h *HTTPHandler) AddPrize(c *gin.Context) {
	var req prizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prize, err := h.service.AddPrize(tenant(c), req.Name, req.DrawCount, req.BoundListID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, prize)
}

// UploadPrizesCSV handles the CSV upload for prizes.
func (h *HTTPHandler) UploadPrizesCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("error retrieving file: %w", err))
		return
	}
	defer file.Close()

	added, err := h.service.ImportPrizesCSV(tenant(c), file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (h *HTTPHandler) RemovePrize(c *gin.Context) {
	if err := h.service.RemovePrize(tenant(c), c.Param("prizeID")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	settings := models.Settings{AllowRepeat: req.AllowRepeat, Title: req.Title}
	if err := h.service.UpdateSettings(tenant(c), settings); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// StartDraw enters the drawing screen for a prize.
func (h *HTTPHandler) StartDraw(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respondDraw(c)(h.service.StartDraw(tenant(c), req.PrizeID))
}

func (h *HTTPHandler) CurrentDraw(c *gin.Context) {
	h.respondDraw(c)(h.service.CurrentDraw(tenant(c)))
}

func (h *HTTPHandler) DrawNext(c *gin.Context) {
	h.respondDraw(c)(h.service.DrawNext(tenant(c)))
}

func (h *HTTPHandler) DrawAll(c *gin.Context) {
	h.respondDraw(c)(h.service.DrawAll(tenant(c)))
}

func (h *HTTPHandler) SetAbsent(c *gin.Context) {
	var req absentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respondDraw(c)(h.service.SetAbsent(tenant(c), c.Param("participantID"), *req.Absent))
}

// Redraw replaces the winners flagged absent, or the listed ones when the
// request names them.
func (h *HTTPHandler) Redraw(c *gin.Context) {
	var req redrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if len(req.ParticipantIDs) > 0 {
		h.respondDraw(c)(h.service.MarkAbsentAndRedraw(tenant(c), req.ParticipantIDs))
		return
	}
	h.respondDraw(c)(h.service.Redraw(tenant(c)))
}

// CloseDraw returns to the overview.
func (h *HTTPHandler) CloseDraw(c *gin.Context) {
	h.service.BackToOverview(tenant(c))
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) respondDraw(c *gin.Context) func(services.DrawView, error) {
	return func(view services.DrawView, err error) {
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *HTTPHandler) GetPresentation(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.PresentationState(tenant(c)))
}

func (h *HTTPHandler) Reset(c *gin.Context) {
	h.service.Reset(tenant(c))
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) GetResults(c *gin.Context) {
	results := h.service.Results(tenant(c))
	if results == nil {
		results = []models.LotteryResult{}
	}
	c.JSON(http.StatusOK, results)
}

// ExportResultsCSV handles the request to download the lottery results as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment;filename=lottery_results.csv")
	if err := h.service.WriteResultsCSV(tenant(c), c.Writer); err != nil {
		logger.Infof("Error writing results CSV: %v", err)
		c.Status(http.StatusInternalServerError)
	}
}

// ExportConfig downloads the setup as a JSON document.
func (h *HTTPHandler) ExportConfig(c *gin.Context) {
	data, err := h.service.ExportConfig(tenant(c))
	if err != nil {
		fail(c, err)
		return
	}
	name := fmt.Sprintf("lottery-config-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment;filename="+name)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportConfig replaces the setup with an uploaded document.
func (h *HTTPHandler) ImportConfig(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.ImportConfig(tenant(c), data); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.Snapshot(tenant(c)))
}
