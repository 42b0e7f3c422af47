package server

import (
	"errors"
	"net/http"

	"bovw/internal/feature"
	"bovw/internal/vector"
	pkgerrors "bovw/pkg/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleGetVocabulary() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Stats())
	}
}

func (s *Server) handleListHistograms() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListHistogramsResponse{Histograms: s.db.Histograms()})
	}
}

func (s *Server) handleEncode() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EncodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		desc, err := toDescriptor(req.Path, req.Features)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		h, err := s.db.Encode(desc)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, HistogramResponse{Path: h.Path, Bins: h.Bins})
	}
}

func (s *Server) handleQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		desc, err := toDescriptor(req.Path, req.Features)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := s.db.Query(desc, req.TopK)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, QueryResponse{Results: results})
	}
}

func toDescriptor(path string, rows [][]float32) (*feature.Descriptor, error) {
	features, err := vector.FromRows(rows)
	if err != nil {
		return nil, err
	}
	return &feature.Descriptor{ImagePath: path, Features: features}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrVocabularyNotReady), errors.Is(err, pkgerrors.ErrNoHistograms):
		return http.StatusServiceUnavailable
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
