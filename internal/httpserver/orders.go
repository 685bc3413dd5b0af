package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"coffeeshop/internal/domain"
	"github.com/gin-gonic/gin"
)

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// staffOrder adds the statuses the panel may offer as next actions.
type staffOrder struct {
	*domain.Order
	NextStatuses []domain.OrderStatus `json:"nextStatuses"`
}

type walkInRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

func (h *handlers) customerOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	orders, err := h.deps.Orders.ListByCustomer(c.Request.Context(), customerFrom(c).ID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondOrders(c, orders)
}

func (h *handlers) customerOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		h.writeError(c, domain.ErrNotFound)
		return
	}
	o, err := h.deps.Orders.GetForCustomer(c.Request.Context(), customerFrom(c).ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		h.writeError(c, domain.ErrNotFound)
		return
	}
	o, err := h.deps.Orders.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, staffOrder{Order: o, NextStatuses: domain.NextStatuses(o.Status)})
}

func (h *handlers) listOrders(c *gin.Context) {
	var filter domain.OrderFilter
	id, err := queryInt(c, "order_id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	filter.ID = int64(id)
	filter.Status = domain.OrderStatus(c.Query("status"))
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		h.writeError(c, err)
		return
	}
	orders, err := h.deps.Orders.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondOrders(c, orders)
}

func (h *handlers) transitionOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		h.writeError(c, domain.ErrNotFound)
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	o, err := h.deps.Orders.Transition(c.Request.Context(), id, domain.OrderStatus(req.Status), actorName(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) resolveWalkIn(c *gin.Context) {
	var req walkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	cust, err := h.deps.Identity.Resolve(c.Request.Context(), domain.ChannelStaff, req.Phone, domain.ProfileHint{Name: req.Name})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func respondOrders(c *gin.Context, orders []domain.Order) {
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, key)
	}
	return n, nil
}
