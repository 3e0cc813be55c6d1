package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/store"
)

const idempotencyHeader = "Idempotency-Key"

type contactRequest struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email" binding:"omitempty,email"`
	Address models.Address `json:"address"`
}

// checkoutFields are the order inputs shared by explicit orders and cart
// checkout.
type checkoutFields struct {
	CustomerID      int64                 `json:"customerId" binding:"min=0"`
	Customer        contactRequest        `json:"customer"`
	PaymentMethod   string                `json:"paymentMethod"`
	DeliveryMethod  models.DeliveryMethod `json:"deliveryMethod"`
	Tax             decimal.Decimal       `json:"tax"`
	Discount        decimal.Decimal       `json:"discount"`
	ShippingAddress *models.Address       `json:"shippingAddress"`
	Notes           string                `json:"notes"`
}

func (f checkoutFields) input(c *gin.Context) checkout.Input {
	contact := checkout.Contact{
		Name:    f.Customer.Name,
		Phone:   f.Customer.Phone,
		Email:   f.Customer.Email,
		Address: f.Customer.Address,
	}
	if f.ShippingAddress != nil && !f.ShippingAddress.IsZero() {
		contact.Address = *f.ShippingAddress
	}
	return checkout.Input{
		CustomerID:     f.CustomerID,
		Contact:        contact,
		PaymentMethod:  f.PaymentMethod,
		DeliveryMethod: f.DeliveryMethod,
		Tax:            f.Tax,
		Discount:       f.Discount,
		Notes:          f.Notes,
		CreatedBy:      middleware.UserID(c),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
}

type orderItemRequest struct {
	ProductID int64 `json:"productId" binding:"required,min=1"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	checkoutFields
	Items []orderItemRequest `json:"items" binding:"dive"`
}

type statusUpdateRequest struct {
	Status        *models.OrderStatus   `json:"status"`
	PaymentStatus *models.PaymentStatus `json:"paymentStatus"`
}

func ListOrders(repo store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := store.OrderFilter{
			Status:        models.OrderStatus(strings.TrimSpace(c.Query("status"))),
			PaymentStatus: models.PaymentStatus(strings.TrimSpace(c.Query("paymentStatus"))),
			Search:        strings.TrimSpace(c.Query("search")),
			Page:          page,
			Limit:         limit,
		}
		if filter.Status != "" && !filter.Status.Valid() {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}
		if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
			respondWithError(c, http.StatusBadRequest, route, "invalid paymentStatus")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := repo.ListOrders(ctx, filter)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, paginated(list, page, limit, total))
	}
}

func GetOrder(repo store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := repo.GetOrder(ctx, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// CreateOrder composes an order from explicit lines, priced from the current
// catalog.
func CreateOrder(products cart.ProductReader, policy cart.ShippingPolicy, composer *checkout.Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		lines := make([]cart.Line, 0, len(req.Items))
		for i, item := range req.Items {
			field := fmt.Sprintf("items[%d].productId", i)
			product, err := products.GetProduct(ctx, item.ProductID)
			if apperr.IsNotFound(err) {
				respondServiceError(c, route, apperr.Invalid(field, "product %d not found", item.ProductID))
				return
			}
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			if !product.IsActive {
				respondServiceError(c, route, apperr.Invalid(field, "product %d is not available", item.ProductID))
				return
			}
			lines = append(lines, cart.Line{Product: product, Quantity: item.Quantity})
		}

		order, err := composer.Compose(ctx, cart.FromLines(policy, lines), req.input(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": order})
	}
}

func UpdateOrderStatus(statuses *orders.StatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/status"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		var req statusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := statuses.UpdateStatus(ctx, id, orders.StatusUpdate{
			Status:        req.Status,
			PaymentStatus: req.PaymentStatus,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "order status updated", "order": order})
	}
}
