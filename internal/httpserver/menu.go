package httpserver

import (
	"net/http"

	"coffeeshop/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.Catalog.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"results": cats, "count": len(cats)})
}

func (h *handlers) listItems(c *gin.Context) {
	items, err := h.deps.Catalog.Items(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.MenuItem{}
	}
	c.JSON(http.StatusOK, gin.H{"results": items, "count": len(items)})
}

func (h *handlers) getItem(c *gin.Context) {
	item, err := h.deps.Catalog.Item(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type priceRequest struct {
	PriceCents *int64 `json:"priceCents"`
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h *handlers) setItemPrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PriceCents == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priceCents is required"})
		return
	}
	item, err := h.deps.Catalog.SetPrice(c.Request.Context(), c.Param("id"), *req.PriceCents)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Printf("http: price changed item_id=%s price_cents=%d by=%s", item.ID, item.PriceCents, actorName(c))
	c.JSON(http.StatusOK, item)
}

func (h *handlers) setItemAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "available is required"})
		return
	}
	item, err := h.deps.Catalog.SetAvailability(c.Request.Context(), c.Param("id"), *req.Available)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Printf("http: availability changed item_id=%s available=%t by=%s", item.ID, item.IsAvailable, actorName(c))
	c.JSON(http.StatusOK, item)
}
