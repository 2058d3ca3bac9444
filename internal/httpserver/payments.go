package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"tortaskeia-api/internal/service/payment"

	"github.com/gin-gonic/gin"
)

func (h *handlers) createPreference(c *gin.Context) {
	result, err := h.deps.Payments.CreatePreference(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handlers) paymentStatus(c *gin.Context) {
	result, err := h.deps.Payments.Status(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// paymentWebhook always acknowledges with 200 so the gateway stops
// retrying; failures are logged and reconciled on the next notification.
// The resource id may arrive in the JSON body or as query parameters
// depending on the notification flavor.
func (h *handlers) paymentWebhook(c *gin.Context) {
	var body struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
		Data  struct {
			ID json.RawMessage `json:"id"`
		} `json:"data"`
	}
	// body is optional, some notification flavors only carry query params
	_ = c.ShouldBindJSON(&body)

	topic := firstNonEmpty(body.Type, body.Topic, c.Query("type"), c.Query("topic"))
	resourceID := strings.Trim(string(body.Data.ID), `"`)
	if resourceID == "" {
		resourceID = firstNonEmpty(c.Query("data.id"), c.Query("id"))
	}

	n := payment.Notification{
		Topic:      topic,
		ResourceID: resourceID,
		Signature:  c.GetHeader("x-signature"),
		RequestID:  c.GetHeader("x-request-id"),
	}
	if err := h.deps.Payments.HandleNotification(c.Request.Context(), n); err != nil {
		h.logger.Printf("webhook: topic=%s resource=%s error=%v", topic, resourceID, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
