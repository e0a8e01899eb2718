package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/healthscore-analysis-server/internal/domain"
	"github.com/healthscore-analysis-server/internal/extract"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// handleAnalyze accepts one or more report files as multipart form data
// (field "files", or "file" for single uploads), extracts biomarker
// readings from each, and returns the full analysis. An optional "sex"
// form value selects sex-specific reference ranges.
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := c.GetString("request_id")
	uploadCfg := s.configManager.GetUploadConfig()

	form, err := c.MultipartForm()
	if err != nil {
		status := http.StatusBadRequest
		code := domain.ErrInvalidInput
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
			code = domain.ErrFileTooLarge
		}
		c.JSON(status, domain.NewAPIError(code, "Failed to parse multipart form", err.Error(), requestID))
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrNoFiles,
			"No files uploaded",
			`Attach at least one report under the "files" form field`,
			requestID,
		))
		return
	}

	sex := domain.Sex(c.PostForm("sex"))
	if !sex.IsValid() {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrInvalidInput,
			"Invalid sex value",
			fmt.Sprintf("%q is not one of male, female or empty", c.PostForm("sex")),
			requestID,
		))
		return
	}

	logger := s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"files":      len(files),
	})

	sources := make([]domain.SourceReadings, 0, len(files))
	for _, fh := range files {
		src, apiErr := s.loadSourceFile(fh, uploadCfg, requestID)
		if apiErr != nil {
			c.JSON(statusForCode(apiErr.Code), apiErr)
			return
		}

		readings, err := s.extractors.Extract(c.Request.Context(), *src)
		if err != nil {
			s.metrics.ObserveExtractionError()
			logger.WithFields(logrus.Fields{
				"file":  fh.Filename,
				"error": err.Error(),
			}).Warn("Extraction failed")
			c.JSON(http.StatusUnprocessableEntity, domain.NewAPIError(
				domain.ErrExtraction,
				fmt.Sprintf("Could not extract readings from %q", fh.Filename),
				err.Error(),
				requestID,
			))
			return
		}

		sources = append(sources, domain.SourceReadings{
			SourceID: fh.Filename,
			Readings: readings,
		})
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), sources, sex)
	if err != nil {
		logger.WithError(err).Error("Analysis failed")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrInternalServer,
			"Analysis failed",
			err.Error(),
			requestID,
		))
		return
	}

	s.metrics.ObserveAnalysis(len(result.Detections))
	c.JSON(http.StatusOK, result)
}

// loadSourceFile validates one upload against the size and extension
// policy and reads it into memory.
func (s *Server) loadSourceFile(fh *multipart.FileHeader, cfg *domain.UploadConfig, requestID string) (*domain.SourceFile, *domain.APIError) {
	if fh.Size > cfg.MaxFileSize {
		return nil, domain.NewAPIError(
			domain.ErrFileTooLarge,
			fmt.Sprintf("File %q exceeds the %d byte limit", fh.Filename, cfg.MaxFileSize),
			"",
			requestID,
		)
	}

	ext := extract.FileExt(fh.Filename)
	if !s.extractors.Supported(ext) {
		return nil, domain.NewAPIError(
			domain.ErrUnsupportedType,
			fmt.Sprintf("Unsupported file type %q", ext),
			fmt.Sprintf("Supported formats: %v", s.extractors.Formats()),
			requestID,
		)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrExtraction, "Failed to open upload", err.Error(), requestID)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrExtraction, "Failed to read upload", err.Error(), requestID)
	}

	return &domain.SourceFile{Name: fh.Filename, Ext: ext, Data: data}, nil
}

// statusForCode maps error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case domain.ErrFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrUnsupportedType, domain.ErrNoFiles, domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrExtraction:
		return http.StatusUnprocessableEntity
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
