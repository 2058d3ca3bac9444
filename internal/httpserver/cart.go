package httpserver

import (
	"net/http"
	"strconv"

	"tortaskeia-api/internal/domain"
	cartsvc "tortaskeia-api/internal/service/cart"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// cartItemResponse flattens a line for clients: live or frozen pricing is
// already resolved into unit_price and subtotal.
type cartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID *int64          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     *string         `json:"image"`
	Quantity  int             `json:"quantity"`
	Notes     *string         `json:"notes"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	ID        int64              `json:"id"`
	Items     []cartItemResponse `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
}

func newCartResponse(cart *domain.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.DisplayName(),
			UnitPrice: item.UnitPrice(),
			Image:     item.Image(),
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			Subtotal:  item.Subtotal(),
		})
	}
	return cartResponse{
		ID:        cart.ID,
		Items:     items,
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
	}
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.Cart.GetOrCreate(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var in cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.deps.Cart.AddItem(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartResponse(cart))
}

func (h *handlers) addCustomCartItem(c *gin.Context) {
	var in cartsvc.AddCustomItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.deps.Cart.AddCustomItem(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartResponse(cart))
}

func (h *handlers) updateCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("itemID"), 10, 64)
	if err != nil {
		badRequest(c, "invalid item id")
		return
	}
	var in cartsvc.UpdateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.deps.Cart.UpdateItem(c.Request.Context(), identityFrom(c), itemID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("itemID"), 10, 64)
	if err != nil {
		badRequest(c, "invalid item id")
		return
	}
	cart, err := h.deps.Cart.RemoveItem(c.Request.Context(), identityFrom(c), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.deps.Cart.Clear(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}
