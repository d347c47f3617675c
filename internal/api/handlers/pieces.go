package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cantus-labs/cantus-api/internal/logger"
	"github.com/cantus-labs/cantus-api/internal/melody"
	"github.com/cantus-labs/cantus-api/internal/models"
	"github.com/cantus-labs/cantus-api/internal/period"
	"github.com/cantus-labs/cantus-api/internal/render"
	"github.com/cantus-labs/cantus-api/internal/score"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PiecesHandler struct {
	db           *gorm.DB
	defaultTempo float64
}

func NewPiecesHandler(db *gorm.DB, defaultTempo float64) *PiecesHandler {
	return &PiecesHandler{
		db:           db,
		defaultTempo: defaultTempo,
	}
}

// List returns stored pieces, newest first, without the event blobs.
func (h *PiecesHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	var total int64
	if err := h.db.Model(&models.Piece{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pieces"})
		return
	}

	var pieces []models.Piece
	err := h.db.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&pieces).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pieces"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pieces":    pieces,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// Get returns one stored piece including its event data.
func (h *PiecesHandler) Get(c *gin.Context) {
	record, ok := h.findPiece(c)
	if !ok {
		return
	}

	var piece score.Piece
	if err := json.Unmarshal([]byte(record.EventsJSON), &piece); err != nil {
		logger.Error("Failed to decode stored piece", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode stored piece"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metadata": record,
		"piece":    piece,
	})
}

// LilyPond returns the stored LilyPond source as plain text.
func (h *PiecesHandler) LilyPond(c *gin.Context) {
	record, ok := h.findPiece(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(record.LilySource))
}

// MIDI renders the stored piece as a Standard MIDI File.
func (h *PiecesHandler) MIDI(c *gin.Context) {
	record, ok := h.findPiece(c)
	if !ok {
		return
	}

	var piece score.Piece
	if err := json.Unmarshal([]byte(record.EventsJSON), &piece); err != nil {
		logger.Error("Failed to decode stored piece", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode stored piece"})
		return
	}

	tempo := h.defaultTempo
	if raw := c.Query("tempo"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tempo"})
			return
		}
		tempo = parsed
	}

	var buf bytes.Buffer
	if err := render.MIDI(&piece, &buf, tempo); err != nil {
		logger.Error("Failed to render MIDI", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render MIDI"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+record.ID+`.mid"`)
	c.Data(http.StatusOK, "audio/midi", buf.Bytes())
}

// CorrectRequest identifies one onset and the recorded alternative that
// should replace its pitch.
type CorrectRequest struct {
	MeasureIndex   int `json:"measure_index"`
	OnsetIndex     int `json:"onset_index"`
	CandidateIndex int `json:"candidate_index"`
}

// Correct swaps one onset's pitch for an alternative that was scored
// during the original generation, then re-renders the stored sources.
func (h *PiecesHandler) Correct(c *gin.Context) {
	record, ok := h.findPiece(c)
	if !ok {
		return
	}

	var req CorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var piece score.Piece
	if err := json.Unmarshal([]byte(record.EventsJSON), &piece); err != nil {
		logger.Error("Failed to decode stored piece", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode stored piece"})
		return
	}

	var decisions []melody.Decision
	if err := json.Unmarshal([]byte(record.DecisionsJSON), &decisions); err != nil {
		logger.Error("Failed to decode stored decisions", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode stored decisions"})
		return
	}

	trace := period.TraceFromDecisions(decisions)
	if err := trace.ReplaceOnset(&piece, req.MeasureIndex, req.OnsetIndex, req.CandidateIndex); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventsJSON, err := json.Marshal(&piece)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode piece"})
		return
	}
	decisionsJSON, err := json.Marshal(trace.Decisions())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode decisions"})
		return
	}

	record.EventsJSON = string(eventsJSON)
	record.DecisionsJSON = string(decisionsJSON)
	record.LilySource = render.LilyPond(&piece, record.Title, "")

	if err := h.db.Save(record).Error; err != nil {
		logger.Error("Failed to store corrected piece", err, logger.Fields{"piece_id": record.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store corrected piece"})
		return
	}

	logger.Info("Piece corrected", logger.Fields{
		"piece_id":      record.ID,
		"measure_index": req.MeasureIndex,
		"onset_index":   req.OnsetIndex,
	})

	c.JSON(http.StatusOK, gin.H{
		"metadata": record,
		"piece":    piece,
		"lilypond": record.LilySource,
	})
}

func (h *PiecesHandler) findPiece(c *gin.Context) (*models.Piece, bool) {
	id := c.Param("id")

	var record models.Piece
	err := h.db.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Piece not found"})
		return nil, false
	}
	if err != nil {
		logger.Error("Failed to load piece", err, logger.Fields{"piece_id": id})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load piece"})
		return nil, false
	}
	return &record, true
}
