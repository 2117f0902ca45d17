// Package daemon provides the HTTP server for the identity aggregation
// service.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/aggregate"
	"github.com/idsweep-io/idsweep/internal/alias"
	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/config"
	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

func NewServer(cfg *config.Config) *Server {
	return &Server{
		Config:    cfg,
		Resolver:  alias.NewResolver(cfg.GetGroupingPath()),
		StartTime: time.Now().UTC(),
	}
}

// Server represents the web service that answers aggregation requests
type Server struct {
	Config         *config.Config
	Resolver       *alias.Resolver
	StartTime      time.Time
	TotalRequests  int64
	VerifyRequests int64
	server         *http.Server
	rateLimiter    *RateLimiter
}

func (s *Server) GetVersion() string {
	return common.GetVersion()
}

// buildEngine assembles a fresh aggregation engine. Connector instances are
// rebuilt per request so definition changes on disk are picked up without a
// restart.
func (s *Server) buildEngine() (*aggregate.Engine, error) {
	conns, err := s.Config.BuildConnectors()
	if err != nil {
		return nil, err
	}
	return aggregate.New(conns, aggregate.WithTimeout(s.Config.GetAggregationTimeout())), nil
}

// Start initializes and starts the web service
func (s *Server) Start() error {
	// Set Gin mode based on configuration
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(
		func(c *gin.Context, err any) {

			foundError, ok := err.(error)

			if !ok {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
				return
			}

			s.getErrorResponse(c, http.StatusInternalServerError, "Internal Server Error", foundError)
		},
	))
	router.Use(CorrelationMiddleware())
	router.Use(s.requestCounterMiddleware())

	corsConfig := cors.Config{
		AllowMethods: s.Config.Server.Security.CORS.AllowedMethods,
		AllowHeaders: s.Config.Server.Security.CORS.AllowedHeaders,
		MaxAge:       time.Duration(s.Config.Server.Security.CORS.MaxAge) * time.Second,
	}
	if slices.Contains(s.Config.Server.Security.CORS.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.Config.Server.Security.CORS.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	// Setup routes
	s.setupRoutes(router)

	// Start server
	addr := s.Config.GetServerAddress()
	fmt.Printf("Starting web service on %s\n", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.Config.Server.Limits.ReadTimeout,
		WriteTimeout: s.Config.Server.Limits.WriteTimeout,
		IdleTimeout:  s.Config.Server.Limits.IdleTimeout,
	}

	// Store server reference for shutdown
	s.server = server

	// Channel to capture startup errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	// Wait a moment to see if the server fails to start
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("failed to start server: %v", err)
		}
		// Server shutdown gracefully
		return nil
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
		fmt.Printf("Web service started successfully on %s\n", addr)
		return nil
	}
}

func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.rateLimiter = nil
	}

	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Println("Server Shutdown:", err)
	}
	log.Println("Server exiting")
}

// requestCounterMiddleware increments the request counter
func (s *Server) requestCounterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		atomic.AddInt64(&s.TotalRequests, 1)
		c.Next()
	}
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {

	// Health endpoint
	if s.Config.Server.Health.Enabled {
		router.GET(s.Config.Server.Health.Path, s.healthHandler)
	}

	// Ready endpoint
	if s.Config.Server.Ready.Enabled {
		router.GET(s.Config.Server.Ready.Path, s.readyHandler)
	}

	// Metrics endpoint
	if s.Config.Server.Metrics.Enabled {
		router.GET(s.Config.Server.Metrics.Path, s.metricsHandler)
	}

	// API endpoints. Probe endpoints above stay open; throttling and auth
	// apply to the API group only.
	api := router.Group(s.Config.GetApiBasePath())

	if s.Config.Server.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(s.Config.Server.RateLimit.Rate, s.Config.Server.RateLimit.Burst)
		api.Use(s.rateLimiter.Middleware())
	}

	if keys := s.Config.Server.Security.APIKeys; len(keys) > 0 {
		api.Use(AuthMiddleware(keys))
	}

	{
		api.POST("/verify", s.postVerify)
		api.POST("/upload", s.postUpload)

		api.GET("/compare", s.getCompare)
		api.GET("/users", s.getUsers)
		api.GET("/user/:identifier", s.getUserByIdentifier)

		api.GET("/groups", s.getGroups)
		api.POST("/groups/merge", s.postMergeUsers)
		api.POST("/groups/split", s.postSplitGroup)

		api.GET("/connectors", s.getConnectors)
	}
}

// healthHandler handles the health check endpoint
//
//	@Summary		Health check
//	@Description	Get the health status of the service and its identity sources
//	@Tags			health
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.HealthResponse	"Health status"
//	@Router			/health [get]
func (s *Server) healthHandler(c *gin.Context) {

	sourcesHealth := make(map[string]models.HealthState)

	conns, err := s.Config.BuildConnectors()
	if err != nil {
		logrus.WithError(err).Error("Failed to build connectors for health check")
	}

	overallStatus := models.HealthStatusHealthy
	available := 0
	for _, connector := range conns {
		if connector.ValidateConfig() != nil {
			sourcesHealth[connector.GetConnectorID()] = models.HealthStatusUnavailable
			continue
		}
		sourcesHealth[connector.GetConnectorID()] = models.HealthStatusHealthy
		available++
	}
	if available == 0 {
		overallStatus = models.HealthStatusDegraded
	}

	response := models.HealthResponse{
		Status:      overallStatus,
		ApiBasePath: s.Config.GetApiBasePath(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     s.GetVersion(),
		Sources:     sourcesHealth,
	}

	c.JSON(http.StatusOK, response)
}

// readyHandler handles the readiness check endpoint
//
//	@Summary		Readiness check
//	@Description	Check if the service is ready to accept requests
//	@Tags			health
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]any	"Ready status"
//	@Router			/ready [get]
func (s *Server) readyHandler(c *gin.Context) {
	response := gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.GetVersion(),
	}

	c.JSON(http.StatusOK, response)
}

// metricsHandler handles the metrics endpoint
//
//	@Summary		Service metrics
//	@Description	Get service metrics including uptime and request counts
//	@Tags			metrics
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.MetricsInfo	"Service metrics"
//	@Router			/metrics [get]
func (s *Server) metricsHandler(c *gin.Context) {
	uptime := time.Since(s.StartTime)

	metrics := models.MetricsInfo{
		Uptime:          uptime.String(),
		TotalRequests:   atomic.LoadInt64(&s.TotalRequests),
		VerifyRequests:  atomic.LoadInt64(&s.VerifyRequests),
		ConnectorsCount: len(connectors.ListConnectorIDs()),
		GroupsCount:     len(s.Resolver.Groups()),
	}

	c.JSON(http.StatusOK, metrics)
}
