package httpserver

import (
	"net/http"
	"time"

	ordersvc "tortaskeia-api/internal/service/order"

	"github.com/gin-gonic/gin"
)

const dayFormat = "2006-01-02"

// availability answers per-day reservation counts. With no query params the
// window defaults to the next 30 days.
func (h *handlers) availability(c *gin.Context) {
	now := time.Now().UTC()
	from := now
	to := now.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(dayFormat, v)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
		to = parsed.AddDate(0, 0, 30)
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(dayFormat, v)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}

	days, err := h.deps.Orders.Availability(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"capacity_per_day": capacityOf(days), "days": days})
}

func capacityOf(days map[string]ordersvc.DayAvailability) int {
	for _, d := range days {
		return d.Capacity
	}
	return 0
}

func (h *handlers) checkout(c *gin.Context) {
	var in ordersvc.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	order, err := h.deps.Orders.Checkout(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListByUser(c.Request.Context(), identityFrom(c).User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.Orders.GetByNumber(c.Request.Context(), c.Param("number"), identityFrom(c).User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
