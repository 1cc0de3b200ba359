package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paylens/reconciliation-service/internal/metrics"
	"github.com/paylens/reconciliation-service/internal/reconciler"
)

// Server holds the HTTP handlers for the reconciliation API.
type Server struct {
	svc    *reconciler.Service
	engine *reconciler.Engine
}

// NewServer creates a Server over the record service and matching engine.
func NewServer(svc *reconciler.Service, engine *reconciler.Engine) *Server {
	return &Server{svc: svc, engine: engine}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(metrics.PrometheusMiddleware("reconciliation-service"))

	router.GET("/", s.health)
	router.GET("/health", s.health)

	router.POST("/merchants", s.createMerchant)
	router.GET("/merchants", s.listMerchants)
	router.GET("/merchants/:merchantId", s.getMerchant)

	router.POST("/orders", s.createOrder)
	router.GET("/orders", s.listOrders)
	router.GET("/orders/:merchantOrderId", s.getOrder)

	router.POST("/payments", s.createPayment)
	router.GET("/payments", s.listPayments)
	router.GET("/payments/:merchantOrderId", s.getPayment)

	router.POST("/reconciliation", s.reconcile)
	router.GET("/reconciliation/report", s.report)
	router.GET("/discrepancies", s.discrepancies)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "reconciliation-service",
	})
}
