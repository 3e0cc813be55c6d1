package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/store"
)

type productCreateRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Price       *decimal.Decimal  `json:"price" binding:"required"`
	Cost        *decimal.Decimal  `json:"cost"`
	Category    string            `json:"category" binding:"required"`
	Brand       string            `json:"brand"`
	SKU         string            `json:"sku"`
	Stock       int               `json:"stock" binding:"min=0"`
	MinStock    *int              `json:"minStock" binding:"omitempty,min=0"`
	Tags        models.StringList `json:"tags"`
	IsActive    *bool             `json:"isActive"`
}

type productUpdateRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Price       *decimal.Decimal   `json:"price"`
	Cost        *decimal.Decimal   `json:"cost"`
	Category    *string            `json:"category"`
	Brand       *string            `json:"brand"`
	Stock       *int               `json:"stock" binding:"omitempty,min=0"`
	MinStock    *int               `json:"minStock" binding:"omitempty,min=0"`
	Tags        *models.StringList `json:"tags"`
	IsActive    *bool              `json:"isActive"`
}

func (r productUpdateRequest) patch() models.ProductPatch {
	return models.ProductPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Cost:        r.Cost,
		Category:    r.Category,
		Brand:       r.Brand,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
	}
}

func ListProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
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

		products, total, err := svc.List(ctx, store.ProductFilter{
			Search:   strings.TrimSpace(c.Query("search")),
			Category: strings.TrimSpace(c.Query("category")),
			IsActive: isActive,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, paginated(products, page, limit, total))
	}
}

func GetProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := svc.Get(ctx, id)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func CreateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer handlePanic(c, route)

		var req productCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := svc.Create(ctx, catalog.NewProduct{
			Name:        req.Name,
			Description: req.Description,
			Price:       *req.Price,
			Cost:        req.Cost,
			Category:    req.Category,
			Brand:       req.Brand,
			SKU:         req.SKU,
			Stock:       req.Stock,
			MinStock:    req.MinStock,
			Tags:        req.Tags,
			IsActive:    req.IsActive,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[PRODUCT] [INFO] product %d created sku=%s", product.ID, product.SKU)
		c.JSON(http.StatusCreated, gin.H{"message": "product created", "product": product})
	}
}

func UpdateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		var req productUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := svc.Update(ctx, id, req.patch())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product updated", "product": product})
	}
}

func DeleteProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"
		defer handlePanic(c, route)

		id, ok := parseIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Delete(ctx, id); err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[PRODUCT] [INFO] product %d deleted", id)
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

func ListCategories(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/categories/list"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := svc.Categories(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": categories})
	}
}

func LowStockProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/alerts/low-stock"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		products, err := svc.LowStock(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": products})
	}
}
