package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/splitpay/order-split-service/internal/dto"
	"github.com/splitpay/order-split-service/internal/middleware"
	"github.com/splitpay/order-split-service/internal/model"
	"github.com/splitpay/order-split-service/internal/service"
)

type SplitHandler struct {
	svc *service.SplitService
}

func NewSplitHandler(svc *service.SplitService) *SplitHandler {
	return &SplitHandler{svc: svc}
}

// Apply computes and persists the split for an order's payment submission.
func (h *SplitHandler) Apply(c *gin.Context) {
	var req dto.ApplySplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "validation failed: " + err.Error(),
		})
		return
	}

	order := &model.Order{
		ID:            c.Param("order_id"),
		ShippingTotal: req.ShippingTotal.Decimal,
		Recurring:     req.Recurring,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Total:     item.Total.Decimal,
		})
	}

	res, err := h.svc.Apply(c.Request.Context(), order, req.PaymentID)
	if err != nil {
		status, resp := middleware.MapDBError(err)
		c.JSON(status, resp)
		return
	}

	resp := dto.ApplySplitResponse{
		OrderID: order.ID,
		Mode:    res.Mode,
		Reason:  res.Reason,
		Split:   dto.ProcessorSplit(res.Shares),
	}
	if res.Record == nil {
		// The order proceeds as a plain payment, without a split.
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Status = string(res.Record.Status)
	c.JSON(http.StatusCreated, resp)
}

func (h *SplitHandler) Get(c *gin.Context) {
	rec, err := h.svc.GetOrderSplit(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		status, resp := middleware.MapDBError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *SplitHandler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		status, resp := middleware.MapDBError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("order_id"), "history": entries})
}

func (h *SplitHandler) Overview(c *gin.Context) {
	overview, err := h.svc.GetOverview(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		status, resp := middleware.MapDBError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// BindPayment attaches the processor payment id once the processor accepts
// the payment.
func (h *SplitHandler) BindPayment(c *gin.Context) {
	var req dto.BindPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "validation failed: " + err.Error(),
		})
		return
	}

	if err := h.svc.BindPayment(c.Request.Context(), c.Param("order_id"), req.PaymentID); err != nil {
		status, resp := middleware.MapDBError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("order_id"), "payment_id": req.PaymentID})
}
