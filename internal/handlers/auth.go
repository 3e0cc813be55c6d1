package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/store"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin employee"`
}

func Login(users store.UserRepository, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if apperr.IsNotFound(err) {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if !user.IsActive {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		token, err := middleware.IssueToken(jwtSecret, user, accessTTL, time.Now())
		if err != nil {
			log.Printf("[%s] sign token: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Printf("[AUTH] [INFO] user %d logged in", user.ID)
		c.JSON(http.StatusOK, gin.H{
			"message": "login successful",
			"token":   token,
			"user":    user,
		})
	}
}

// Register creates a back-office account. Only admins reach it.
func Register(users store.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/register"
		defer handlePanic(c, route)

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[%s] hash password: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "internal server error")
			return
		}

		role := req.Role
		if role == "" {
			role = models.RoleEmployee
		}
		now := time.Now()
		user := &models.User{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := users.CreateUser(ctx, user); err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[AUTH] [INFO] user %d registered role=%s", user.ID, user.Role)
		c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": user})
	}
}

func Profile(users store.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/auth/profile"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := users.GetUser(ctx, middleware.UserID(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
