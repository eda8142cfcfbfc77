package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telegram-shop-backend/internal/common/middleware"
	"telegram-shop-backend/internal/features/shop/models"
	"telegram-shop-backend/internal/features/shop/service"
)

type Handler struct {
	shop service.ShopService
}

func NewHandler(shop service.ShopService) *Handler {
	return &Handler{shop: shop}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/categories", h.listCategories)
	r.GET("/products", h.listProducts)

	r.GET("/cart", h.getCart)
	r.POST("/cart", h.addCartItem)
	r.DELETE("/cart", h.clearCart)
	r.DELETE("/cart/item", h.removeCartItem)
	r.POST("/cart/checkout", h.checkout)

	r.GET("/orders", h.listOrders)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.shop.ListCategories(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) listProducts(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "category_id must be an integer"})
			return
		}
		categoryID = &id
	}

	products, err := h.shop.ListProducts(c.Request.Context(), categoryID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getCart(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	lines, err := h.shop.GetCart(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

type addCartItemRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if err := h.shop.AddCartItem(c.Request.Context(), req.UserID, req.ProductID, req.Quantity); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type removeCartItemRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ProductID int64 `json:"product_id" binding:"required"`
}

func (h *Handler) removeCartItem(c *gin.Context) {
	var req removeCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := h.shop.RemoveCartItem(c.Request.Context(), req.UserID, req.ProductID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type clearCartRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *Handler) clearCart(c *gin.Context) {
	var req clearCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	deleted, err := h.shop.ClearCart(c.Request.Context(), req.UserID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted_count": deleted})
}

type checkoutRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	models.CheckoutRequest
}

// checkout converts the user's cart into an order. Re-entry while an active
// order exists returns 200 with that order, not an error.
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	order, err := h.shop.Checkout(c.Request.Context(), req.UserID, req.CheckoutRequest)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	orders, err := h.shop.ListOrders(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func queryUserID(c *gin.Context) (int64, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id is required"})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id must be an integer"})
		return 0, false
	}
	return id, true
}
