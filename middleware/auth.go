package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

const (
	ContextUserID  = "userID"
	ContextCourier = "courier"
	ContextStore   = "store"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// ParseUserToken validates an HS256 access token issued by the hosted auth
// backend and returns its subject.
func ParseUserToken(secret, tokenStr string) (string, error) {
	if secret == "" || tokenStr == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// UserID is set by IsAuthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func IsAuthenticated(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, "Please log in to access this content", nil)
			c.Abort()
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>", nil)
			c.Abort()
			return
		}

		userID, err := ParseUserToken(secret, parts[1])
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// IsCourier must run after IsAuthenticated. It loads the caller's courier row.
func IsCourier() gin.HandlerFunc {
	return func(c *gin.Context) {
		courier, err := stores.GetCourierByUser(c.Request.Context(), UserID(c))
		if errors.Is(err, stores.ErrCourierNotFound) {
			utils.RespondError(c, http.StatusForbidden, "Courier account required", nil)
			c.Abort()
			return
		}
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to load courier", err)
			c.Abort()
			return
		}
		c.Set(ContextCourier, courier)
		c.Next()
	}
}

// IsStoreOwner must run after IsAuthenticated on routes with a :storeId param.
func IsStoreOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		store, err := stores.GetStore(c.Request.Context(), c.Param("storeId"))
		if errors.Is(err, stores.ErrStoreNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Store not found", nil)
			c.Abort()
			return
		}
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to load store", err)
			c.Abort()
			return
		}
		if store.OwnerID != UserID(c) {
			utils.RespondError(c, http.StatusForbidden, "You do not manage this store", nil)
			c.Abort()
			return
		}
		c.Set(ContextStore, store)
		c.Next()
	}
}

// IsAdmin validates admin access via x-admin-secret header
func IsAdmin(adminSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminSecret == "" {
			utils.RespondError(c, http.StatusInternalServerError, "Admin access not configured", nil)
			c.Abort()
			return
		}

		headerSecret := c.GetHeader("x-admin-secret")
		if headerSecret == "" || subtle.ConstantTimeCompare([]byte(headerSecret), []byte(adminSecret)) != 1 {
			utils.RespondError(c, http.StatusForbidden, "Forbidden: Invalid admin credentials", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
