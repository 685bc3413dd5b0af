package httpserver

import (
	"net/http"
	"strings"

	"coffeeshop/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxAccount  = "account"
	ctxCustomer = "customer"
)

// requestID propagates the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (h *handlers) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	acc, err := h.deps.Accounts.LookupByToken(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(ctxAccount, acc)
	c.Next()
}

func (h *handlers) requireStaff(c *gin.Context) {
	acc := accountFrom(c)
	if acc == nil || !acc.IsStaff {
		h.writeError(c, domain.ErrForbidden)
		return
	}
	c.Next()
}

// webCustomer resolves the signed-in account to its customer record.
func (h *handlers) webCustomer(c *gin.Context) {
	acc := accountFrom(c)
	name := strings.TrimSpace(acc.FirstName + " " + acc.LastName)
	cust, err := h.deps.Identity.Resolve(c.Request.Context(), domain.ChannelWeb, acc.ID, domain.ProfileHint{Name: name})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(ctxCustomer, cust)
	c.Next()
}

// pathCustomer loads the customer named in the URL for staff routes.
func (h *handlers) pathCustomer(c *gin.Context) {
	cust, err := h.deps.Identity.Get(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(ctxCustomer, cust)
	c.Next()
}

func accountFrom(c *gin.Context) *domain.Account {
	v, ok := c.Get(ctxAccount)
	if !ok {
		return nil
	}
	acc, _ := v.(*domain.Account)
	return acc
}

func customerFrom(c *gin.Context) *domain.Customer {
	v, ok := c.Get(ctxCustomer)
	if !ok {
		return nil
	}
	cust, _ := v.(*domain.Customer)
	return cust
}

// actorName identifies the caller in audit log lines.
func actorName(c *gin.Context) string {
	if acc := accountFrom(c); acc != nil {
		return acc.Email
	}
	return "anonymous"
}
