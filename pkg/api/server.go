// Package api provides the REST API server for midigen
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/freeman-jiang/midigen/pkg/converter"
	"github.com/freeman-jiang/midigen/pkg/tokens"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Midigen API
// @version 1.0
// @description API for converting MIDI files to token sequences and back
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server bound to host:port. An empty host
// listens on all interfaces.
func StartServer(host string, port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/tokenize", handleTokenize)
		v1.POST("/detokenize", handleDetokenize)
		v1.GET("/vocab", describeVocab)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf("%s:%d", host, port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midigen",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"midi", "tokens"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// describeVocab godoc
// @Summary Describe the token vocabulary
// @Description Returns the vocabulary size and ID layout for the active configuration
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/vocab [get]
func describeVocab(c *gin.Context) {
	cfg := tokens.DefaultConfig()
	vocab, err := tokens.NewVocab(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"size":                   vocab.Size(),
		"note_on_range":          []int{0, 127},
		"note_off_range":         []int{128, 255},
		"time_shift_buckets":     vocab.ShiftBuckets(),
		"velocity_buckets":       cfg.VelocityBuckets,
		"time_shift_granularity": cfg.TimeShiftGranularity,
		"max_time_shift":         cfg.MaxTimeShift,
		"start_sequence":         vocab.StartID(),
		"end_sequence":           vocab.EndID(),
	})
}

// detokenizeRequest is the JSON body for the detokenize endpoint
type detokenizeRequest struct {
	Tokens   []int  `json:"tokens" binding:"required"`
	Velocity *uint8 `json:"velocity,omitempty"`
}

// handleTokenize godoc
// @Summary Convert MIDI to tokens
// @Description Upload a MIDI file and receive its token sequence
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to tokenize"
// @Param readable query bool false "Include human-readable token descriptions"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/tokenize [post]
func handleTokenize(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	conv, err := converter.New(tokens.DefaultConfig())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ids, err := conv.MIDIToTokens(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"tokens": ids,
		"count":  len(ids),
	}
	if c.DefaultQuery("readable", "false") == "true" {
		readable := strings.Split(strings.TrimRight(conv.TokensReadable(ids), "\n"), "\n")
		resp["readable"] = readable
	}
	c.JSON(http.StatusOK, resp)
}

// handleDetokenize godoc
// @Summary Convert tokens to MIDI
// @Description Post a token sequence and receive a MIDI file
// @Tags convert
// @Accept json
// @Produce application/octet-stream
// @Param request body detokenizeRequest true "Token sequence"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/detokenize [post]
func handleDetokenize(c *gin.Context) {
	var req detokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg := tokens.DefaultConfig()
	if req.Velocity != nil {
		cfg.DefaultVelocity = *req.Velocity
	}

	conv, err := converter.New(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := conv.TokensToMIDI(req.Tokens)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=detokenized.mid")
	c.Data(http.StatusOK, "audio/midi", result)
}
