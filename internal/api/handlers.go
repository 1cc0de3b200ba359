package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/reconciler"
	"github.com/paylens/reconciliation-service/internal/store"
)

func (s *Server) createMerchant(c *gin.Context) {
	var req models.CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	merchant, err := s.svc.CreateMerchant(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Merchant '" + req.MerchantID + "' already exists",
			})
			return
		}
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, merchant)
}

func (s *Server) listMerchants(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	merchants, err := s.svc.Merchants(c.Request.Context(), skip, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, merchants)
}

func (s *Server) getMerchant(c *gin.Context) {
	merchant, err := s.svc.Merchant(c.Request.Context(), c.Param("merchantId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, merchant)
}

func (s *Server) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	order, err := s.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		// Duplicate order references answer 400, matching the original API.
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Order with merchant_order_id '" + req.MerchantOrderID + "' already exists",
			})
			return
		}
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	orders, err := s.svc.Orders(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.svc.Order(c.Request.Context(), c.Param("merchantOrderId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) createPayment(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	payment, err := s.svc.CreatePayment(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Payment with merchant_order_id '" + req.MerchantOrderID + "' already exists",
			})
			return
		}
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

func (s *Server) listPayments(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	payments, err := s.svc.Payments(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (s *Server) getPayment(c *gin.Context) {
	payment, err := s.svc.Payment(c.Request.Context(), c.Param("merchantOrderId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) reconcile(c *gin.Context) {
	result, err := s.engine.Reconcile(c.Request.Context())
	if err != nil {
		if errors.Is(err, reconciler.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error("Reconciliation failed: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during reconciliation"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) report(c *gin.Context) {
	report, err := s.svc.BuildReport(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) discrepancies(c *gin.Context) {
	discrepancies, err := s.svc.ListDiscrepancies(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, discrepancies)
}

// writeError maps store sentinels onto HTTP statuses. Unexpected errors
// hide behind a generic body so storage details never leak to callers.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConstraint):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Database constraint violation"})
	default:
		log.Error("Unexpected error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
	}
}

func pagination(c *gin.Context) (skip, limit int, ok bool) {
	var err error
	if skip, err = strconv.Atoi(c.DefaultQuery("skip", "0")); err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return 0, 0, false
	}
	if limit, err = strconv.Atoi(c.DefaultQuery("limit", "100")); err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, 0, false
	}
	return skip, limit, true
}

func listFilter(c *gin.Context) (store.ListFilter, bool) {
	skip, limit, ok := pagination(c)
	if !ok {
		return store.ListFilter{}, false
	}
	filter := store.ListFilter{Offset: skip, Limit: limit}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return store.ListFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}
