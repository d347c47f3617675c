package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cantus-labs/cantus-api/internal/logger"
	"github.com/cantus-labs/cantus-api/internal/melody"
	"github.com/cantus-labs/cantus-api/internal/metrics"
	"github.com/cantus-labs/cantus-api/internal/models"
	"github.com/cantus-labs/cantus-api/internal/period"
	"github.com/cantus-labs/cantus-api/internal/render"
)

type GenerateHandler struct {
	db            *gorm.DB
	maxMeasures   int
	sentryMetrics *metrics.SentryMetrics
}

func NewGenerateHandler(db *gorm.DB, maxMeasures int) *GenerateHandler {
	return &GenerateHandler{
		db:            db,
		maxMeasures:   maxMeasures,
		sentryMetrics: metrics.NewSentryMetrics(),
	}
}

// GenerateRequest carries the generation parameters plus presentation
// fields that do not affect the musical result.
type GenerateRequest struct {
	period.Config

	Title string  `json:"title"`
	Tempo float64 `json:"tempo"`
}

// Generate builds one melodic period from the request parameters, stores
// it and returns the piece with its rendered LilyPond source.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := req.Config
	if h.maxMeasures > 0 && cfg.NumMeasures > h.maxMeasures {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("num_measures must be at most %d", h.maxMeasures),
		})
		return
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	cfg.Normalize()

	var oracle melody.Oracle
	if cfg.Markov.Enabled {
		chain, err := melody.NewDegreeChain(cfg.Markov.Order)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		oracle = chain
	}

	builder, err := period.NewBuilder(cfg, oracle)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startTime := time.Now()
	piece, err := builder.Build()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	duration := time.Since(startTime)

	lily := render.LilyPond(piece, req.Title, "")

	requestJSON, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode request"})
		return
	}
	eventsJSON, err := json.Marshal(piece)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode piece"})
		return
	}
	decisionsJSON, err := json.Marshal(builder.Trace().Decisions())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode decisions"})
		return
	}

	record := models.Piece{
		Title:         req.Title,
		Key:           cfg.Key,
		Mode:          piece.Mode,
		MeterBeats:    cfg.Meter.Beats,
		MeterUnit:     cfg.Meter.Unit,
		NumMeasures:   cfg.NumMeasures,
		Structure:     string(cfg.Structure),
		Seed:          cfg.Seed,
		RequestJSON:   string(requestJSON),
		EventsJSON:    string(eventsJSON),
		DecisionsJSON: string(decisionsJSON),
		LilySource:    lily,
	}
	if h.db != nil {
		if err := h.db.Create(&record).Error; err != nil {
			logger.Error("Failed to store piece", err, logger.Fields{
				"key":  cfg.Key,
				"mode": piece.Mode,
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store piece"})
			return
		}
	}

	logger.LogGeneration(record.ID, duration, logger.Fields{
		"key":          cfg.Key,
		"mode":         piece.Mode,
		"structure":    string(cfg.Structure),
		"num_measures": cfg.NumMeasures,
		"seed":         cfg.Seed,
	})
	h.sentryMetrics.RecordGeneration(c.Request.Context(), piece.Mode, string(cfg.Structure),
		cfg.NumMeasures, duration)

	c.JSON(http.StatusOK, gin.H{
		"request_id": c.GetString("request_id"),
		"id":         record.ID,
		"seed":       cfg.Seed,
		"piece":      piece,
		"lilypond":   lily,
	})
}
