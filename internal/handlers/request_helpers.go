package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
)

const requestTimeout = 5 * time.Second

// Pinger is the liveness check of a store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db Pinger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(checkCtx)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps the apperr taxonomy onto HTTP statuses. Anything
// unrecognised is logged and reported as a bare 500.
func respondServiceError(c *gin.Context, route string, err error) {
	var (
		validation apperr.ValidationError
		missing    apperr.MissingCustomerInfoError
		notFound   apperr.NotFoundError
		stock      apperr.InsufficientStockError
		conflict   apperr.ConflictError
		transition apperr.TransitionError
	)

	switch {
	case errors.Is(err, apperr.ErrEmptyCart):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.As(err, &validation):
		log.Printf("[%s] returning error %d: %v", route, http.StatusBadRequest, err)
		body := gin.H{"error": validation.Message}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	case errors.As(err, &missing):
		log.Printf("[%s] returning error %d: %v", route, http.StatusBadRequest, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "missing customer info",
			"fields": missing.Fields,
		})
	case errors.As(err, &notFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.As(err, &stock):
		log.Printf("[%s] returning error %d: %v", route, http.StatusConflict, err)
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":       "insufficient stock",
			"productId":   stock.ProductID,
			"productName": stock.ProductName,
			"available":   stock.Available,
			"requested":   stock.Requested,
		})
	case errors.As(err, &conflict):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.As(err, &transition):
		log.Printf("[%s] returning error %d: %v", route, http.StatusUnprocessableEntity, err)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"field": transition.Field,
			"from":  transition.From,
			"to":    transition.To,
		})
	default:
		log.Printf("[%s] internal error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			case "min":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			case "oneof":
				details = append(details, fmt.Sprintf("%s must be one of: %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// parseIDParam reads a positive integer path parameter, answering 400 when it
// is malformed.
func parseIDParam(c *gin.Context, route, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseBoolQuery returns nil when key is absent.
func parseBoolQuery(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &v, nil
}
