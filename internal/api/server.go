package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/actions"
	"github.com/sabihatasneem/st2/internal/api/handlers"
	"github.com/sabihatasneem/st2/internal/api/middleware"
	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/sabihatasneem/st2/pkg/config"
	"github.com/sabihatasneem/st2/platform/events"
	"go.uber.org/zap"
)

// Server hosts the HTTP API.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer wires the services and routes onto a gin engine.
func NewServer(cfg config.App, db *sql.DB, zlog *zap.Logger, logger logging.Logger, publisher events.Publisher) (*Server, error) {
	store := storage.NewMySQLClient(db)

	engine, err := rules.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("create rule engine: %w", err)
	}

	clk := clock.RealClock{}
	triggerService := triggers.NewServiceWithClock(store, clk)
	ruleService := rules.NewService(store, engine)
	actionService := actions.NewService(store)
	executionService := executions.NewService(store, publisher, logger)
	ingestionService := ingestion.NewService(store, ruleService, executionService, publisher, logger, clk)

	baseURL := fmt.Sprintf("http://localhost:%s", cfg.APIPort)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginzap.RecoveryWithZap(zlog, true))
	router.Use(middleware.RequestID())
	router.Use(ginzap.Ginzap(zlog, time.RFC3339, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := handlers.NewHealthHandler(db)
	metricsHandler := handlers.NewMetricsHandler(store, logger)
	triggerHandler := handlers.NewTriggerHandler(triggerService, logger, baseURL)
	ruleHandler := handlers.NewRuleHandler(ruleService, logger)
	actionHandler := handlers.NewActionHandler(actionService, logger)
	executionHandler := handlers.NewExecutionHandler(executionService, logger)
	instanceHandler := handlers.NewInstanceHandler(ingestionService, logger)
	webhookHandler := handlers.NewWebhookHandler(store, ingestionService, logger)

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", metricsHandler.Metrics)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/triggers", triggerHandler.Create)
		v1.GET("/triggers", triggerHandler.List)
		v1.GET("/triggers/:id", triggerHandler.Get)
		v1.PUT("/triggers/:id", triggerHandler.Update)
		v1.DELETE("/triggers/:id", triggerHandler.Delete)
		v1.POST("/triggers/:id/fire", webhookHandler.TestFire)

		v1.POST("/rules", ruleHandler.Create)
		v1.GET("/rules", ruleHandler.List)
		v1.GET("/rules/:id", ruleHandler.Get)
		v1.PUT("/rules/:id", ruleHandler.Update)
		v1.DELETE("/rules/:id", ruleHandler.Delete)

		v1.POST("/actions", actionHandler.Create)
		v1.GET("/actions", actionHandler.List)
		v1.GET("/actions/:name", actionHandler.Get)
		v1.PUT("/actions/:name", actionHandler.Update)
		v1.DELETE("/actions/:name", actionHandler.Delete)

		v1.POST("/executions", executionHandler.Create)
		v1.GET("/executions", executionHandler.List)
		v1.GET("/executions/:id", executionHandler.Get)
		v1.POST("/executions/:id/cancel", executionHandler.Cancel)
		v1.POST("/executions/:id/rerun", executionHandler.Rerun)

		v1.GET("/instances", instanceHandler.List)
		v1.GET("/instances/:id", instanceHandler.Get)

		v1.POST("/webhook/:trigger_id", webhookHandler.Receive)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ConnectDatabase opens and verifies the MySQL connection pool.
func ConnectDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("mysql", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
