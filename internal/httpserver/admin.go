package httpserver

import (
	"net/http"

	ordersvc "tortaskeia-api/internal/service/order"

	"github.com/gin-gonic/gin"
)

func (h *handlers) adminListOrders(c *gin.Context) {
	orders, err := h.deps.Orders.AdminList(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) adminUpdateOrder(c *gin.Context) {
	var in ordersvc.AdminUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if in.Status != nil && !in.Status.Valid() {
		badRequest(c, "unknown status "+string(*in.Status))
		return
	}
	order, err := h.deps.Orders.AdminUpdate(c.Request.Context(), c.Param("number"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
