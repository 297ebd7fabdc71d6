package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homeservices-agent/internal/domain"
	cartsvc "homeservices-agent/internal/service/cart"
	"homeservices-agent/internal/service/session"
)

// sessionResponse never carries the token.
type sessionResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user"`
	Warning         string       `json:"warning,omitempty"`
}

type cartResponse struct {
	Items   []domain.CartItem `json:"items"`
	Total   float64           `json:"total"`
	Quote   quoteResponse     `json:"quote"`
	Warning string            `json:"warning,omitempty"`
}

type quoteResponse struct {
	Subtotal       float64 `json:"subtotal"`
	ConvenienceFee float64 `json:"convenienceFee"`
	Tax            float64 `json:"tax"`
	Total          float64 `json:"total"`
}

func toSessionResponse(st session.State) sessionResponse {
	return sessionResponse{
		IsAuthenticated: st.IsAuthenticated(),
		User:            st.User,
	}
}

func toCartResponse(store CartStore) cartResponse {
	items := store.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items: items,
		Total: domain.CentsToAmount(store.Total()),
		Quote: toQuoteResponse(store.Quote()),
	}
}

func toQuoteResponse(q cartsvc.Quote) quoteResponse {
	return quoteResponse{
		Subtotal:       domain.CentsToAmount(q.SubtotalCents),
		ConvenienceFee: domain.CentsToAmount(q.ConvenienceFeeCents),
		Tax:            domain.CentsToAmount(q.TaxCents),
		Total:          domain.CentsToAmount(q.TotalCents),
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// persistWarning splits store errors into a warning the UI can show and a hard
// failure.
func persistWarning(err error) (string, bool) {
	if err == nil {
		return "", true
	}
	if errors.Is(err, session.ErrPersist) {
		return "session saved for this run only: " + err.Error(), true
	}
	return "", false
}

func respondSession(c *gin.Context, st session.State, err error) {
	warning, ok := persistWarning(err)
	if !ok {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp := toSessionResponse(st)
	resp.Warning = warning
	c.JSON(http.StatusOK, resp)
}
