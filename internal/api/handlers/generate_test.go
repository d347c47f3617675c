package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantus-labs/cantus-api/internal/score"
)

func newGenerateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewGenerateHandler(nil, 64)
	router.POST("/api/generate", handler.Generate)
	return router
}

func postGenerate(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	router := newGenerateRouter()

	w := postGenerate(t, router, `{"key": "C",`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRejectsInvalidParameters(t *testing.T) {
	router := newGenerateRouter()

	cases := []string{
		`{"num_measures": 65}`,
		`{"key": "H"}`,
		`{"meter": {"beats": 4, "unit": 3}}`,
		`{"structure": "fractal"}`,
		`{"rhythmic_complexity": 4}`,
		`{"rest_probability": 1.5}`,
		`{"max_interval": 13}`,
		`{"markov": {"enabled": true, "order": 4}}`,
	}
	for _, body := range cases {
		w := postGenerate(t, router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestGenerateReturnsPieceAndLilyPond(t *testing.T) {
	router := newGenerateRouter()

	w := postGenerate(t, router, `{"key": "G", "mode": "mixolydian", "seed": 42}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Seed     int64       `json:"seed"`
		Piece    score.Piece `json:"piece"`
		LilyPond string      `json:"lilypond"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, int64(42), resp.Seed)
	assert.Equal(t, "G", resp.Piece.Key)
	assert.Equal(t, "mixolydian", resp.Piece.Mode)
	assert.Len(t, resp.Piece.Measures, 8)
	assert.Contains(t, resp.LilyPond, `\key g \mixolydian`)
}

func TestGeneratePicksRandomSeedWhenUnset(t *testing.T) {
	router := newGenerateRouter()

	w := postGenerate(t, router, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Seed int64 `json:"seed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.Seed)
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	router := newGenerateRouter()

	body := `{"key": "D", "mode": "harmonic_minor", "seed": 7, "num_measures": 4}`
	first := postGenerate(t, router, body)
	second := postGenerate(t, router, body)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b struct {
		Piece    score.Piece `json:"piece"`
		LilyPond string      `json:"lilypond"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))

	assert.Equal(t, a.LilyPond, b.LilyPond)
	assert.Equal(t, a.Piece, b.Piece)
}
