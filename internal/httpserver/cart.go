package httpserver

import (
	"net/http"

	"coffeeshop/internal/domain"
	"github.com/gin-gonic/gin"
)

type cartResponse struct {
	CustomerID string                `json:"customerId"`
	Lines      []domain.CartItemView `json:"lines"`
	TotalCents int64                 `json:"totalCents"`
	Quantity   int                   `json:"totalQuantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutRequest struct {
	Fulfillment string `json:"fulfillment"`
	Address     string `json:"address"`
}

// renderCart responds with the current cart of the customer in context.
func (h *handlers) renderCart(c *gin.Context, status int) {
	cust := customerFrom(c)
	seq, err := h.deps.Carts.Snapshot(c.Request.Context(), cust.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := cartResponse{CustomerID: cust.ID, Lines: []domain.CartItemView{}}
	for v := range seq {
		resp.Lines = append(resp.Lines, v)
		resp.TotalCents += v.TotalCents
		resp.Quantity += v.Quantity
	}
	c.JSON(status, resp)
}

func (h *handlers) getCart(c *gin.Context) {
	h.renderCart(c, http.StatusOK)
}

// cartTotal reports the live total without the lines.
func (h *handlers) cartTotal(c *gin.Context) {
	cust := customerFrom(c)
	total, err := h.deps.Carts.Total(c.Request.Context(), cust.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customerId": cust.ID, "totalCents": total})
}

func (h *handlers) addItem(c *gin.Context) {
	if _, err := h.deps.Carts.Add(c.Request.Context(), customerFrom(c).ID, c.Param("itemId")); err != nil {
		h.writeError(c, err)
		return
	}
	h.renderCart(c, http.StatusOK)
}

func (h *handlers) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}
	if err := h.deps.Carts.SetQuantity(c.Request.Context(), customerFrom(c).ID, c.Param("itemId"), *req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	h.renderCart(c, http.StatusOK)
}

func (h *handlers) removeItem(c *gin.Context) {
	if err := h.deps.Carts.Remove(c.Request.Context(), customerFrom(c).ID, c.Param("itemId")); err != nil {
		h.writeError(c, err)
		return
	}
	h.renderCart(c, http.StatusOK)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.Carts.Clear(c.Request.Context(), customerFrom(c).ID); err != nil {
		h.writeError(c, err)
		return
	}
	h.renderCart(c, http.StatusOK)
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	o, err := h.deps.Orders.Checkout(c.Request.Context(), customerFrom(c).ID, domain.Fulfillment(req.Fulfillment), req.Address)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}
