package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/models"
)

type cartItemRequest struct {
	ProductID int64 `json:"productId" binding:"required,min=1"`
	Quantity  *int  `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartDeliveryRequest struct {
	DeliveryMethod models.DeliveryMethod `json:"deliveryMethod" binding:"required"`
}

func GetCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/carts/:cartId"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, crt.View())
	}
}

func AddCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/carts/:cartId/items"
		defer handlePanic(c, route)

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := carts.AddProduct(ctx, crt, req.ProductID, qty); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, crt.View())
	}
}

func SetCartItemQuantity(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/carts/:cartId/items/:productId"
		defer handlePanic(c, route)

		productID, ok := parseIDParam(c, route, "productId")
		if !ok {
			return
		}
		var req cartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := crt.SetQuantity(ctx, productID, *req.Quantity); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, crt.View())
	}
}

func RemoveCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/carts/:cartId/items/:productId"
		defer handlePanic(c, route)

		productID, ok := parseIDParam(c, route, "productId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := crt.RemoveItem(ctx, productID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, crt.View())
	}
}

func SetCartDelivery(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/carts/:cartId/delivery"
		defer handlePanic(c, route)

		var req cartDeliveryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := crt.SetDeliveryMethod(ctx, req.DeliveryMethod); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, crt.View())
	}
}

func CheckoutCart(carts *cart.Service, composer *checkout.Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/carts/:cartId/checkout"
		defer handlePanic(c, route)

		var req checkoutFields
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		crt, err := carts.Open(ctx, c.Param("cartId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		order, err := composer.Compose(ctx, crt, req.input(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": order})
	}
}

// DeliveryOptions lists the delivery methods priced for a cart (cartId query)
// or for an explicit subtotal.
func DeliveryOptions(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/checkout/delivery-options"
		defer handlePanic(c, route)

		if id := strings.TrimSpace(c.Query("cartId")); id != "" {
			ctx, cancel := requestContext(c)
			defer cancel()

			crt, err := carts.Open(ctx, id)
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": crt.DeliveryOptions()})
			return
		}

		subtotal := decimal.Zero
		if raw := strings.TrimSpace(c.Query("subtotal")); raw != "" {
			parsed, err := decimal.NewFromString(raw)
			if err != nil || parsed.IsNegative() {
				respondWithError(c, http.StatusBadRequest, route, "invalid subtotal")
				return
			}
			subtotal = parsed
		}
		c.JSON(http.StatusOK, gin.H{"data": carts.Policy().Options(subtotal)})
	}
}
