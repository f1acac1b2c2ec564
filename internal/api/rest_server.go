package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/worldgen/internal/auth"
	"github.com/annel0/worldgen/internal/logging"
	"github.com/annel0/worldgen/internal/middleware"
	"github.com/annel0/worldgen/internal/storage"
	"github.com/annel0/worldgen/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API инспектора мира
type RestServer struct {
	router  *gin.Engine
	world   *world.WorldBuilder
	store   storage.SnapshotStore
	signer  *auth.Signer
	logger  *logging.Logger
	port    string
	metrics *ServerMetrics

	httpServer *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string                // адрес для запуска сервера
	World      *world.WorldBuilder   // построитель, чью сетку показываем
	Store      storage.SnapshotStore // хранилище снимков, может быть nil
	Signer     *auth.Signer          // nil: админ-эндпоинты без токена
	Registerer prometheus.Registerer // nil: глобальный реестр
	Logger     *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.World == nil {
		return nil, errors.New("rest server: world builder is required")
	}
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("worldgen_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw, err := middleware.NewPrometheusMiddleware("worldgen_api", config.Registerer)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	router.Use(corsMiddleware())

	server := &RestServer{
		router:  router,
		world:   config.World,
		store:   config.Store,
		signer:  config.Signer,
		logger:  config.Logger,
		port:    config.Port,
		metrics: NewServerMetrics(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	{
		api.GET("/world", rs.handleWorld)
		api.GET("/server", rs.handleServerInfo)
		api.GET("/chunks/at", rs.handleChunkAtPosition)
		api.GET("/snapshots", rs.handleSnapshots)

		regions := api.Group("/regions")
		regions.GET("", rs.handleRegions)
		region := regions.Group("/:x/:y")
		{
			region.GET("", rs.handleRegion)
			region.GET("/coordinates", rs.handleCoordinates)
			region.GET("/zones", rs.handleZones)
			region.GET("/map", rs.handleMap)
			region.GET("/chunks/:cx/:cy", rs.handleChunk)
			region.GET("/path", rs.handlePath)
			region.GET("/random", rs.handleRandom)
		}
	}

	// Административные эндпоинты (только для админов)
	admin := api.Group("/admin")
	admin.Use(rs.adminMiddleware())
	{
		admin.POST("/regenerate", rs.handleRegenerate)
		admin.POST("/reset", rs.handleReset)
		admin.POST("/paths", rs.handleCommitPath)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Handler отдаёт http.Handler (тесты, встраивание)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.logger.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает REST сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	return rs.httpServer.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  rs.world.State().String(),
		"time":   time.Now().Unix(),
	})
}
