package httpserver

import (
	"net/http"

	"coffeeshop/internal/domain"
	accountsvc "coffeeshop/internal/service/account"
	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type tokenRequest struct {
	GrantType    string `form:"grant_type" binding:"required"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	RefreshToken string `form:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type meResponse struct {
	Account  *domain.Account  `json:"account"`
	Customer *domain.Customer `json:"customer"`
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	acc, err := h.deps.Accounts.Signup(c.Request.Context(), accountsvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": acc})
}

// token implements the password and refresh_token grants.
func (h *handlers) token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grant_type is required"})
		return
	}
	var (
		access, refresh string
		err             error
	)
	switch req.GrantType {
	case "password":
		if req.Username == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		_, access, refresh, err = h.deps.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	case "refresh_token":
		if req.RefreshToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
			return
		}
		_, access, refresh, err = h.deps.Accounts.Refresh(c.Request.Context(), req.RefreshToken)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported grant_type"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    h.deps.Accounts.AccessTTLSeconds(),
	})
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, meResponse{Account: accountFrom(c), Customer: customerFrom(c)})
}
