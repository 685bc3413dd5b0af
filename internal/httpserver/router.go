package httpserver

import (
	"context"
	"errors"
	"io"
	"iter"
	"log"
	"time"

	"coffeeshop/internal/domain"
	accountsvc "coffeeshop/internal/service/account"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type AccountService interface {
	Signup(ctx context.Context, in accountsvc.SignupInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*domain.Account, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Account, string, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Account, error)
	AccessTTLSeconds() int
}

type CatalogService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Items(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
	Item(ctx context.Context, id string) (*domain.MenuItem, error)
	SetPrice(ctx context.Context, itemID string, priceCents int64) (*domain.MenuItem, error)
	SetAvailability(ctx context.Context, itemID string, available bool) (*domain.MenuItem, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, ch domain.Channel, principal string, hint domain.ProfileHint) (*domain.Customer, error)
	Get(ctx context.Context, customerID string) (*domain.Customer, error)
}

type CartService interface {
	Add(ctx context.Context, customerID, itemID string) (int, error)
	SetQuantity(ctx context.Context, customerID, itemID string, quantity int) error
	Remove(ctx context.Context, customerID, itemID string) error
	Clear(ctx context.Context, customerID string) error
	Total(ctx context.Context, customerID string) (int64, error)
	Snapshot(ctx context.Context, customerID string) (iter.Seq[domain.CartItemView], error)
}

type OrderService interface {
	Checkout(ctx context.Context, customerID string, fulfillment domain.Fulfillment, address string) (*domain.Order, error)
	Transition(ctx context.Context, orderID int64, to domain.OrderStatus, actor string) (*domain.Order, error)
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	GetForCustomer(ctx context.Context, customerID string, orderID int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

// UpdateHandler consumes Telegram updates delivered to the webhook.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// Deps are the services the router dispatches to. Bot may be nil, in which
// case the webhook route is not registered.
type Deps struct {
	Accounts AccountService
	Catalog  CatalogService
	Identity IdentityResolver
	Carts    CartService
	Orders   OrderService
	Bot      UpdateHandler

	CORSOrigins   []string
	WebhookSecret string
	ReadyChecks   []ReadyCheck
}

func (d Deps) validate() error {
	switch {
	case d.Accounts == nil:
		return errors.New("httpserver: account service required")
	case d.Catalog == nil:
		return errors.New("httpserver: catalog service required")
	case d.Identity == nil:
		return errors.New("httpserver: identity resolver required")
	case d.Carts == nil:
		return errors.New("httpserver: cart service required")
	case d.Orders == nil:
		return errors.New("httpserver: order service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestID(), gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), corsMiddleware(deps.CORSOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.ReadyChecks))

	h := &handlers{deps: deps, logger: logger}

	auth := router.Group("/auth")
	auth.POST("/signup", h.signup)
	auth.POST("/token", h.token)
	router.GET("/me", h.authenticate, h.webCustomer, h.me)

	menu := router.Group("/menu")
	menu.GET("/categories", h.listCategories)
	menu.GET("/categories/:id/items", h.listItems)
	menu.GET("/items/:id", h.getItem)

	web := router.Group("", h.authenticate, h.webCustomer)
	registerCartRoutes(web.Group("/cart"), h)
	web.POST("/checkout", h.checkout)
	web.GET("/orders", h.customerOrders)
	web.GET("/orders/:id", h.customerOrder)

	staff := router.Group("/staff", h.authenticate, h.requireStaff)
	staff.POST("/walkins", h.resolveWalkIn)
	staffCustomer := staff.Group("/customers/:customerId", h.pathCustomer)
	registerCartRoutes(staffCustomer.Group("/cart"), h)
	staffCustomer.POST("/checkout", h.checkout)
	staffCustomer.GET("/orders", h.customerOrders)
	staff.GET("/orders", h.listOrders)
	staff.GET("/orders/:id", h.getOrder)
	staff.POST("/orders/:id/status", h.transitionOrder)
	staff.PUT("/menu/items/:id/price", h.setItemPrice)
	staff.PUT("/menu/items/:id/availability", h.setItemAvailability)

	if deps.Bot != nil {
		router.POST("/bot/webhook", h.botWebhook)
	}

	return router, nil
}

func registerCartRoutes(g *gin.RouterGroup, h *handlers) {
	g.GET("", h.getCart)
	g.GET("/total", h.cartTotal)
	g.DELETE("", h.clearCart)
	g.POST("/items/:itemId", h.addItem)
	g.PUT("/items/:itemId", h.setQuantity)
	g.DELETE("/items/:itemId", h.removeItem)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
