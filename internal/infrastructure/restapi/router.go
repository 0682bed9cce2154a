package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"staking_tracker/docs"
)

const swaggerSpecPath = "/docs/swagger.yaml"

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
// A nil gatherer serves the default prometheus registry.
func SetupRouter(h *TrackerHandler, zl *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	if zl != nil {
		router.Use(ZapLoggerMiddleware(zl))
	}
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/wallets", h.ListWalletsHandler)
		v1.POST("/wallets/import", h.ImportWalletsHandler)
		v1.GET("/wallets/export", h.ExportWalletsHandler)
		v1.PATCH("/wallets/:address", h.UpdateLabelHandler)

		v1.POST("/snapshots/refresh", h.RefreshHandler)
		v1.GET("/snapshots", h.ListSnapshotsHandler)
		v1.GET("/snapshots/:address", h.GetSnapshotHandler)
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	metricsHandler := promhttp.Handler()
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	// Swagger UI читает описание API из встроенного swagger.yaml
	router.GET(swaggerSpecPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", docs.SwaggerYAML)
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(swaggerSpecPath)))

	return router
}
