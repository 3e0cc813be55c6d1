package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/store"
)

type customerCreateRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"omitempty,email"`
	Phone    string         `json:"phone"`
	Address  models.Address `json:"address"`
	Notes    string         `json:"notes"`
	IsActive *bool          `json:"isActive"`
}

type customerUpdateRequest struct {
	Name     *string         `json:"name" binding:"omitempty,min=1"`
	Email    *string         `json:"email" binding:"omitempty,email"`
	Phone    *string         `json:"phone"`
	Address  *models.Address `json:"address"`
	Notes    *string         `json:"notes"`
	IsActive *bool           `json:"isActive"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (r customerUpdateRequest) patch() models.CustomerPatch {
	p := models.CustomerPatch{
		Name:     trimmed(r.Name),
		Phone:    trimmed(r.Phone),
		Address:  r.Address,
		Notes:    r.Notes,
		IsActive: r.IsActive,
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		p.Email = &email
	}
	return p
}

func ListCustomers(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/customers"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		isActive, err := parseBoolQuery(c, "isActive")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := customers.ListCustomers(ctx, store.CustomerFilter{
			Search:   strings.TrimSpace(c.Query("search")),
			IsActive: isActive,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, paginated(list, page, limit, total))
	}
}

func GetCustomer(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/customers/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		customer, err := customers.GetCustomer(ctx, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func CustomerStats(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/customers/:id/stats"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		customer, err := customers.GetCustomer(ctx, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, customer.Stats())
	}
}

func CreateCustomer(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/customers"
		defer handlePanic(c, route)

		var req customerCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "name is required")
			return
		}

		now := time.Now()
		customer := &models.Customer{
			Name:      name,
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:     strings.TrimSpace(req.Phone),
			Address:   req.Address,
			Notes:     strings.TrimSpace(req.Notes),
			IsActive:  req.IsActive == nil || *req.IsActive,
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := customers.CreateCustomer(ctx, customer); err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[CUSTOMER] [INFO] customer %d created", customer.ID)
		c.JSON(http.StatusCreated, gin.H{"message": "customer created", "customer": customer})
	}
}

func UpdateCustomer(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/customers/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		var req customerUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		patch := req.patch()
		if patch.Empty() {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}
		if patch.Name != nil && *patch.Name == "" {
			respondWithError(c, http.StatusBadRequest, route, "name is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		customer, err := customers.UpdateCustomer(ctx, id, patch, time.Now())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "customer updated", "customer": customer})
	}
}

func DeleteCustomer(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/customers/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := customers.DeleteCustomer(ctx, id); err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[CUSTOMER] [INFO] customer %d deleted", id)
		c.JSON(http.StatusOK, gin.H{"message": "customer deleted"})
	}
}
