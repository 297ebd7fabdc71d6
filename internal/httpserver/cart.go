package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homeservices-agent/internal/domain"
	"homeservices-agent/internal/service/session"
)

type setCartRequest struct {
	Items []domain.CartItem `json:"items"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartHandlers struct {
	store   CartStore
	session SessionStore
	backend CartFetcher
	logger  zerolog.Logger
}

func (h *cartHandlers) get(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

func (h *cartHandlers) set(c *gin.Context) {
	var req setCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	for _, item := range req.Items {
		if msg := validateItem(item); msg != "" {
			writeError(c, http.StatusBadRequest, msg)
			return
		}
	}
	h.store.SetCart(req.Items)
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

func (h *cartHandlers) addItem(c *gin.Context) {
	var item domain.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateItem(item); msg != "" {
		writeError(c, http.StatusBadRequest, msg)
		return
	}
	h.store.AddItem(item)
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

func (h *cartHandlers) updateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if *req.Quantity > domain.MaxQuantity {
		writeError(c, http.StatusBadRequest, quantityTooLarge)
		return
	}
	h.store.UpdateQuantity(c.Param("serviceID"), *req.Quantity)
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

func (h *cartHandlers) removeItem(c *gin.Context) {
	h.store.RemoveItem(c.Param("serviceID"))
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

func (h *cartHandlers) clear(c *gin.Context) {
	h.store.ClearCart()
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

// hydrate replaces the local cart with the signed-in customer's remote cart.
func (h *cartHandlers) hydrate(c *gin.Context) {
	st := h.session.State()
	if !st.IsAuthenticated() {
		writeError(c, http.StatusUnauthorized, session.ErrNotAuthenticated.Error())
		return
	}
	if h.backend == nil {
		writeError(c, http.StatusServiceUnavailable, "backend not configured")
		return
	}
	items, err := h.backend.FetchCart(c.Request.Context(), st.User.ID, st.Token)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", st.User.ID).Msg("hydrate cart failed")
		writeError(c, http.StatusBadGateway, "fetch remote cart failed")
		return
	}
	h.store.SetCart(items)
	c.JSON(http.StatusOK, toCartResponse(h.store))
}

var (
	quantityTooLarge = fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantity)
	priceTooLarge    = fmt.Sprintf("price must not exceed %.2f", domain.CentsToAmount(domain.MaxPriceCents))
)

func validateItem(item domain.CartItem) string {
	switch {
	case strings.TrimSpace(item.ServiceID) == "":
		return "service_id required"
	case item.PriceCents < 0:
		return "price must not be negative"
	case item.PriceCents > domain.MaxPriceCents:
		return priceTooLarge
	case item.Quantity > domain.MaxQuantity:
		return quantityTooLarge
	}
	return ""
}
