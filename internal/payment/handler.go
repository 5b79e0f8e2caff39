package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleWebhook processes POST callbacks from PayTR. Responses are
// plain text: the provider only accepts the ack literal and retries the
// delivery on any other body or status.
func (h *Handler) HandleWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "PAYTR notification failed: bad form encoding")
		return
	}

	err := h.service.HandleCallback(c.Request.Context(), c.Request.PostForm)
	switch {
	case err == nil:
		c.String(http.StatusOK, AckResponse)
	case errors.Is(err, ErrInvalidSignature):
		c.String(http.StatusBadRequest, "PAYTR notification failed: invalid hash")
	case errors.Is(err, ErrMalformedRequest):
		c.String(http.StatusBadRequest, "PAYTR notification failed: %s", err.Error())
	case errors.Is(err, ErrRecordNotFound):
		c.String(http.StatusNotFound, "Payment not found")
	default:
		c.String(http.StatusInternalServerError, "Payment store error")
	}
}

// GetPayment returns the current status of a payment record. Used by the
// order status and admin pages to poll the outcome after redirect.
func (h *Handler) GetPayment(c *gin.Context) {
	merchantOID := c.Param("merchant_oid")
	if merchantOID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merchant_oid is required"})
		return
	}

	record, err := h.service.GetPayment(c.Request.Context(), merchantOID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}

	c.JSON(http.StatusOK, record.ToResponse())
}
