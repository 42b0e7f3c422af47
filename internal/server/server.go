package server

import (
	"net/http"

	DB "bovw/internal/db"
	"bovw/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	router *gin.Engine
	db     *DB.DB
}

// New creates a new server instance
func New(db *DB.DB) *Server {
	s := &Server{
		db:     db,
		router: gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealthCheck())
	s.router.GET("/v1/vocabulary", s.handleGetVocabulary())

	s.router.GET("/v1/histograms", s.handleListHistograms())
	s.router.POST("/v1/histograms/encode", s.handleEncode())
	s.router.POST("/v1/histograms/query", s.handleQuery())
}

// Handler exposes the routes for embedding in another http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until the listener fails.
func (s *Server) Run(addr string) error {
	logger.Info("Starting retrieval service", "addr", addr)
	return s.router.Run(addr)
}
