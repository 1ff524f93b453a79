package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tienda-service/internal/models"
	"tienda-service/internal/service"
	"tienda-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	userIDHeader         = "X-User-ID"
	idempotencyKeyHeader = "Idempotency-Key"
	actorKey             = "actor"
)

type UserAPI interface {
	Authenticate(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, req *service.UserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, req *service.UserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type CustomerAPI interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, req *service.CustomerRequest) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, req *service.CustomerRequest) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

type CatalogAPI interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, req *service.CategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, req *service.CategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, req *service.ProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req *service.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type InventoryAPI interface {
	ReceiveStock(ctx context.Context, req *service.ReceiveStockRequest) (*models.StockEntry, error)
	ListStockEntries(ctx context.Context) ([]models.StockEntry, error)
	DeleteStockEntry(ctx context.Context, id int64) error
}

type SalesAPI interface {
	Sell(ctx context.Context, req *service.SellRequest) (*models.Sale, bool, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	DeleteSale(ctx context.Context, id int64) error
}

type DashboardAPI interface {
	Build(ctx context.Context) *service.Dashboard
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call
type Services struct {
	Users     UserAPI
	Customers CustomerAPI
	Catalog   CatalogAPI
	Inventory InventoryAPI
	Sales     SalesAPI
	Dashboard DashboardAPI
}

// Handler contains HTTP handlers
type Handler struct {
	svc         Services
	deps        map[string]Pinger
	serviceName string
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are pinged by /ready.
func NewHandler(serviceName string, svc Services, deps map[string]Pinger) *Handler {
	return &Handler{
		svc:         svc,
		deps:        deps,
		serviceName: serviceName,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(h.serviceName))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", h.identify())
	manage := v1.Group("", requireManage())

	v1.GET("/users", h.listUsers)
	v1.GET("/users/:id", h.getUser)
	manage.POST("/users", h.createUser)
	manage.PUT("/users/:id", h.updateUser)
	manage.DELETE("/users/:id", h.deleteUser)

	v1.GET("/customers", h.listCustomers)
	v1.GET("/customers/:id", h.getCustomer)
	manage.POST("/customers", h.createCustomer)
	manage.PUT("/customers/:id", h.updateCustomer)
	manage.DELETE("/customers/:id", h.deleteCustomer)

	v1.GET("/categories", h.listCategories)
	v1.GET("/categories/:id", h.getCategory)
	manage.POST("/categories", h.createCategory)
	manage.PUT("/categories/:id", h.updateCategory)
	manage.DELETE("/categories/:id", h.deleteCategory)

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	manage.POST("/products", h.createProduct)
	manage.PUT("/products/:id", h.updateProduct)
	manage.DELETE("/products/:id", h.deleteProduct)

	v1.GET("/stock-entries", h.listStockEntries)
	manage.POST("/stock-entries", h.receiveStock)
	manage.DELETE("/stock-entries/:id", h.deleteStockEntry)

	v1.GET("/sales", h.listSales)
	v1.GET("/sales/:id", h.getSale)
	manage.POST("/sales", h.createSale)
	manage.DELETE("/sales/:id", h.deleteSale)

	v1.GET("/dashboard", h.dashboard)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// identify resolves the acting user from the gateway header
func (h *Handler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + userIDHeader})
			return
		}

		user, err := h.svc.Users.Authenticate(c.Request.Context(), id)
		if errors.Is(err, models.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown or inactive user"})
			return
		}
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// requireManage rejects actors without the management capability
func requireManage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := c.Get(actorKey)
		actor, _ := user.(*models.User)
		if !models.CanManage(actor) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not allowed to manage records"})
			return
		}
		c.Next()
	}
}

// respondError maps domain errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal error"

	switch {
	case errors.Is(err, models.ErrValidation):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrInsufficientStock):
		status, msg = http.StatusConflict, "Insufficient stock"
	case errors.Is(err, models.ErrConflict):
		status, msg = http.StatusConflict, "Conflict"
	case errors.Is(err, models.ErrTransientStorage):
		status, msg = http.StatusServiceUnavailable, "Temporarily unavailable, retry"
		c.Header("Retry-After", "1")
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// idParam parses :id, answering 400 when it is not a positive integer
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid ID", nil)
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
