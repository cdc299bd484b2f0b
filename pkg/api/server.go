// Package api provides the REST API server for midifade
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/fade"
	"github.com/james-see/midifade/pkg/midifile"
	"github.com/james-see/midifade/pkg/presets"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MIDI Fade Generator API
// @version 1.0
// @description API for generating fade-in/fade-out MIDI files for lighting scenes
// @host localhost:8080
// @BasePath /api/v1

// Options wires the server to its collaborators
type Options struct {
	Store     *presets.Store
	Runner    batch.Runner
	OutputDir string // generated files and relative output_directory values live here
	Logger    *log.Logger
}

// Server serves the HTTP API
type Server struct {
	store     *presets.Store
	runner    batch.Runner
	outputDir string
	logger    *log.Logger
}

// GenerateRequest is the body of POST /api/v1/generate. Either Scenes or
// Preset must be given.
type GenerateRequest struct {
	Scenes          []fade.Scene `json:"scenes"`
	Preset          string       `json:"preset,omitempty"`
	OutputDirectory string       `json:"output_directory,omitempty"`
}

// NewServer returns a server for opts. Runner defaults to the native driver.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runner := opts.Runner
	if runner == nil {
		runner = &batch.Driver{Logger: logger}
	}
	return &Server{
		store:     opts.Store,
		runner:    runner,
		outputDir: opts.OutputDir,
		logger:    logger,
	}
}

// StartServer starts the API server on the specified port
func StartServer(port int, opts Options) error {
	s := NewServer(opts)
	s.logger.Info("starting api server", "port", port, "output", opts.OutputDir)
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)
	r.GET("/download/:filename", s.handleDownload)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/generate", s.handleGenerate)
		v1.POST("/render/:direction", s.handleRender)

		v1.GET("/presets", s.listPresets)
		v1.POST("/presets", s.savePreset)
		v1.GET("/presets/export", s.exportPresets)
		v1.POST("/presets/import", s.importPresets)
		v1.GET("/presets/:name", s.getPreset)
		v1.DELETE("/presets/:name", s.deletePreset)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
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
		"service": "midifade",
	})
}

// handleGenerate godoc
// @Summary Generate fade files for scenes
// @Description Writes a fade-in and fade-out MIDI file per scene into the output directory
// @Tags generate
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Scenes or preset name"
// @Success 200 {object} batch.Result
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /generate [post]
func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
		return
	}

	scenes := req.Scenes
	if req.Preset != "" {
		if s.store == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No preset store configured"})
			return
		}
		p, err := s.store.Get(req.Preset)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
			return
		}
		scenes = p.SceneList()
	}
	if scenes == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Request needs scenes or a preset"})
		return
	}

	dir := s.resolveOutputDir(req.OutputDirectory)
	result, err := s.runner.Run(c.Request.Context(), scenes, dir)
	if err != nil {
		body := gin.H{"success": false, "error": err.Error()}
		var sceneErr *batch.SceneError
		if errors.As(err, &sceneErr) {
			body["scene"] = sceneErr.Scene
		}
		if result != nil {
			body["output_directory"] = result.OutputDir
			body["results"] = result.Results
		}
		c.JSON(statusFor(err), body)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleRender godoc
// @Summary Render one fade as a MIDI file
// @Description Encodes a single scene in one direction and returns the file without writing to disk
// @Tags generate
// @Accept json
// @Produce audio/midi
// @Param direction path string true "in or out"
// @Param scene body fade.Scene true "Scene to render"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /render/{direction} [post]
func (s *Server) handleRender(c *gin.Context) {
	dir, err := fade.ParseDirection(c.Param("direction"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var scene fade.Scene
	if err := c.ShouldBindJSON(&scene); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scene: " + err.Error()})
		return
	}

	data, err := midifile.EncodeScene(scene, dir)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", scene.Filename(dir)))
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleDownload godoc
// @Summary Download a generated file
// @Description Serves a file from the configured output directory
// @Tags generate
// @Produce audio/midi
// @Param filename path string true "File name"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /download/{filename} [get]
func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(s.outputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.FileAttachment(path, name)
}

// listPresets godoc
// @Summary List presets
// @Tags presets
// @Produce json
// @Success 200 {array} presets.Preset
// @Router /presets [get]
func (s *Server) listPresets(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	list, err := s.store.List()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// getPreset godoc
// @Summary Get a preset by name
// @Tags presets
// @Produce json
// @Param name path string true "Preset name"
// @Success 200 {object} presets.Preset
// @Failure 404 {object} map[string]string
// @Router /presets/{name} [get]
func (s *Server) getPreset(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	p, err := s.store.Get(c.Param("name"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// savePreset godoc
// @Summary Save a preset
// @Description Stores a preset, replacing any preset with the same name
// @Tags presets
// @Accept json
// @Produce json
// @Param preset body presets.Preset true "Preset"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /presets [post]
func (s *Server) savePreset(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var p presets.Preset
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preset: " + err.Error()})
		return
	}

	replaced, err := s.store.Save(p)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("preset saved", "name", p.Name, "replaced", replaced)
	c.JSON(http.StatusOK, gin.H{"saved": p.Name, "replaced": replaced})
}

// deletePreset godoc
// @Summary Delete a preset
// @Tags presets
// @Produce json
// @Param name path string true "Preset name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /presets/{name} [delete]
func (s *Server) deletePreset(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	name := c.Param("name")
	if err := s.store.Delete(name); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("preset deleted", "name", name)
	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

// importPresets godoc
// @Summary Import presets
// @Description Upload an export file or a bare preset list (JSON or YAML). With preview=true the presets are returned without being stored.
// @Tags presets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Preset file"
// @Param preview query bool false "Decode only"
// @Success 200 {object} presets.ImportSummary
// @Failure 400 {object} map[string]string
// @Router /presets/import [post]
func (s *Server) importPresets(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	format := presets.DetectFormat(header.Filename)

	if c.Query("preview") == "true" {
		list, err := presets.Decode(file, format)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"presets": list})
		return
	}

	summary, err := s.store.Import(file, format)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("presets imported", "file", header.Filename, "imported", summary.Imported, "existing", summary.Existing)
	c.JSON(http.StatusOK, summary)
}

// exportPresets godoc
// @Summary Export presets
// @Description Downloads presets in an export envelope. Repeat name to select presets; omit it to export all.
// @Tags presets
// @Produce json
// @Param format query string false "json (default) or yaml"
// @Param name query []string false "Preset names"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /presets/export [get]
func (s *Server) exportPresets(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	format := presets.FormatJSON
	contentType := "application/json"
	if f := strings.ToLower(c.Query("format")); f == "yaml" || f == "yml" {
		format = presets.FormatYAML
		contentType = "application/yaml"
	}

	var buf strings.Builder
	if _, err := s.store.Export(&buf, format, c.QueryArray("name")...); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	filename := "presets." + string(format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, []byte(buf.String()))
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No preset store configured"})
		return false
	}
	return true
}

// resolveOutputDir places relative request directories under the
// configured output directory
func (s *Server) resolveOutputDir(requested string) string {
	switch {
	case requested == "":
		return s.outputDir
	case filepath.IsAbs(requested):
		return requested
	default:
		return filepath.Join(s.outputDir, requested)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fade.ErrValidation), errors.Is(err, presets.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, presets.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
