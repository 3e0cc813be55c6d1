package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/dashboard"
	"storefront/internal/middleware"
	"storefront/internal/orders"
	"storefront/internal/store"
)

// Deps is everything the HTTP API serves from.
type Deps struct {
	Store     store.Store
	Catalog   *catalog.Service
	Carts     *cart.Service
	Composer  *checkout.Composer
	Statuses  *orders.StatusService
	Dashboard *dashboard.Service
	JWTSecret string
	AccessTTL time.Duration
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	staff := middleware.StaffAuth(d.JWTSecret)
	admin := middleware.AdminAuth(d.JWTSecret)
	optional := middleware.OptionalAuth(d.JWTSecret)

	r.GET("/health", Health(d.Store))

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", Login(d.Store, d.JWTSecret, d.AccessTTL))
		auth.POST("/register", admin, Register(d.Store))
		auth.GET("/profile", staff, Profile(d.Store))
	}

	products := api.Group("/products")
	{
		products.GET("", ListProducts(d.Catalog))
		products.GET("/categories/list", ListCategories(d.Catalog))
		products.GET("/alerts/low-stock", staff, LowStockProducts(d.Catalog))
		products.GET("/:id", GetProduct(d.Catalog))
		products.POST("", admin, CreateProduct(d.Catalog))
		products.PUT("/:id", admin, UpdateProduct(d.Catalog))
		products.DELETE("/:id", admin, DeleteProduct(d.Catalog))
	}

	customers := api.Group("/customers", staff)
	{
		customers.GET("", ListCustomers(d.Store))
		customers.GET("/:id", GetCustomer(d.Store))
		customers.GET("/:id/stats", CustomerStats(d.Store))
		customers.POST("", CreateCustomer(d.Store))
		customers.PUT("/:id", UpdateCustomer(d.Store))
		customers.DELETE("/:id", DeleteCustomer(d.Store))
	}

	ordersGroup := api.Group("/orders")
	{
		ordersGroup.GET("", staff, ListOrders(d.Store))
		ordersGroup.GET("/:id", staff, GetOrder(d.Store))
		ordersGroup.POST("", optional, CreateOrder(d.Store, d.Carts.Policy(), d.Composer))
		ordersGroup.PUT("/:id/status", staff, UpdateOrderStatus(d.Statuses))
	}

	carts := api.Group("/carts/:cartId")
	{
		carts.GET("", GetCart(d.Carts))
		carts.POST("/items", AddCartItem(d.Carts))
		carts.PUT("/items/:productId", SetCartItemQuantity(d.Carts))
		carts.DELETE("/items/:productId", RemoveCartItem(d.Carts))
		carts.PUT("/delivery", SetCartDelivery(d.Carts))
		carts.POST("/checkout", optional, CheckoutCart(d.Carts, d.Composer))
	}

	api.GET("/checkout/delivery-options", DeliveryOptions(d.Carts))

	dash := api.Group("/dashboard", staff)
	{
		dash.GET("/overview", DashboardOverview(d.Dashboard))
		dash.GET("/sales-chart", SalesChart(d.Dashboard))
		dash.GET("/revenue-by-category", RevenueByCategory(d.Dashboard))
	}
}
