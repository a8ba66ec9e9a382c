// Package api provides the REST API server for midi2deluge
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/midi2deluge/pkg/converter"
	"github.com/james-see/midi2deluge/pkg/deluge"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title midi2deluge API
// @version 1.0
// @description API for turning MIDI files and clip lists into Synthstrom Deluge songs
// @host localhost:8080
// @BasePath /api/v1

// maxUploadSize bounds request bodies and uploaded files
const maxUploadSize = 32 << 20

// Server serves conversions against one template
type Server struct {
	conv      *converter.Converter
	maxUpload int64
}

// NewServer creates a Server that renders songs from conv's template
func NewServer(conv *converter.Converter) *Server {
	return &Server{conv: conv, maxUpload: maxUploadSize}
}

// StartServer starts the API server on the specified port
func StartServer(port int, conv *converter.Converter) error {
	return NewServer(conv).Router().Run(fmt.Sprintf(":%d", port))
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = maxUploadSize

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/presets", listPresets)
		v1.GET("/formats", listFormats)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/inject", s.handleInject)
		v1.POST("/convert/midi2deluge", s.handleMIDIToDeluge)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
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
		"service": "midi2deluge",
	})
}

// listPresets godoc
// @Summary List instrument presets
// @Description Returns the preset catalog clips are assigned from
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/presets [get]
func listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"presets":   deluge.Catalog(),
		"max_clips": deluge.MaxClips,
		"colors":    []int{deluge.MinColorOffset, deluge.MaxColorOffset},
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
		"formats":     []string{"midi", "clips", "deluge"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// handleValidate godoc
// @Summary Validate a clip list
// @Description Checks a JSON clip list without writing a song
// @Tags convert
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/validate [post]
func (s *Server) handleValidate(c *gin.Context) {
	body, err := s.readBody(c.Request.Body)
	if err != nil {
		c.JSON(bodyStatus(err), gin.H{"error": err.Error()})
		return
	}

	clips, err := deluge.CheckJSON(body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "clips": len(clips)})
}

// handleInject godoc
// @Summary Build a song from a clip list
// @Description Post a JSON clip list and receive a Deluge song
// @Tags convert
// @Accept json
// @Produce application/xml
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/inject [post]
func (s *Server) handleInject(c *gin.Context) {
	body, err := s.readBody(c.Request.Body)
	if err != nil {
		c.JSON(bodyStatus(err), gin.H{"error": err.Error()})
		return
	}

	clips, err := deluge.DecodeClips(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.render(c, clips, "song.xml")
}

// handleMIDIToDeluge godoc
// @Summary Convert MIDI to a Deluge song
// @Description Upload a MIDI file and receive a Deluge song
// @Tags convert
// @Accept multipart/form-data
// @Produce application/xml
// @Param file formData file true "MIDI file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Router /api/v1/convert/midi2deluge [post]
func (s *Server) handleMIDIToDeluge(c *gin.Context) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := s.readBody(file)
	if err != nil {
		c.JSON(bodyStatus(err), gin.H{"error": err.Error()})
		return
	}

	clips, err := converter.NewMIDIConverter().ParseMIDI(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(clips) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No playable tracks in MIDI file"})
		return
	}

	name := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	if name == "" {
		name = "converted"
	}
	s.render(c, clips, converter.SanitizeFilename(name)+".xml")
}

var errTooLarge = errors.New("request body too large")

// readBody reads r up to the upload limit
func (s *Server) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxUpload {
		return nil, errTooLarge
	}
	return data, nil
}

func bodyStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) render(c *gin.Context, clips []deluge.Clip, filename string) {
	song, res, err := s.conv.Render(clips)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Deluge-Clips", strconv.Itoa(res.Clips))
	c.Header("X-Deluge-Presets", strings.Join(res.Presets, ","))
	c.Data(http.StatusOK, "application/xml", song)
}

// errorStatus maps input problems to 400 and everything else to 500
func errorStatus(err error) int {
	switch {
	case errors.Is(err, deluge.ErrInvalidClipData),
		errors.Is(err, deluge.ErrTooManyClips),
		errors.Is(err, deluge.ErrExhausted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
