package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homeservices-agent/internal/domain"
	cartsvc "homeservices-agent/internal/service/cart"
	"homeservices-agent/internal/service/session"
)

// SessionStore is the subset of session.Store used by the handlers.
type SessionStore interface {
	State() session.State
	Login(ctx context.Context, user domain.User, token string) error
	UpdateUser(ctx context.Context, user domain.User) error
	SetToken(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	LoadAuth(ctx context.Context) bool
}

// CartStore is the subset of cart.Store used by the handlers.
type CartStore interface {
	Items() []domain.CartItem
	Total() int64
	Quote() cartsvc.Quote
	SetCart(items []domain.CartItem)
	AddItem(item domain.CartItem)
	UpdateQuantity(serviceID string, quantity int)
	RemoveItem(serviceID string)
	ClearCart()
}

// CartFetcher reads the remote cart used for hydration.
type CartFetcher interface {
	FetchCart(ctx context.Context, customerID, token string) ([]domain.CartItem, error)
}

// Pinger reports storage reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router needs. Backend and Storage are
// optional. Without CORSOrigins no cross-origin request is granted.
type Deps struct {
	Session     SessionStore
	Cart        CartStore
	Backend     CartFetcher
	Storage     Pinger
	CORSOrigins []string
}

// buildRouter wires routes for the agent API.
func buildRouter(logger zerolog.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Session == nil {
		return nil, errors.New("session store required")
	}
	if deps.Cart == nil {
		return nil, errors.New("cart store required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Storage))

	sh := &sessionHandlers{store: deps.Session}
	sessionGroup := router.Group("/session")
	sessionGroup.GET("", sh.get)
	sessionGroup.POST("/login", sh.login)
	sessionGroup.PUT("/user", sh.setUser)
	sessionGroup.PUT("/token", sh.setToken)
	sessionGroup.POST("/logout", sh.logout)
	sessionGroup.POST("/load", sh.load)

	ch := &cartHandlers{store: deps.Cart, session: deps.Session, backend: deps.Backend, logger: logger}
	cartGroup := router.Group("/cart")
	cartGroup.GET("", ch.get)
	cartGroup.PUT("", ch.set)
	cartGroup.DELETE("", ch.clear)
	cartGroup.POST("/items", ch.addItem)
	cartGroup.PATCH("/items/:serviceID", ch.updateQuantity)
	cartGroup.DELETE("/items/:serviceID", ch.removeItem)
	cartGroup.POST("/hydrate", ch.hydrate)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
