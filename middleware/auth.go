package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"gorm.io/gorm"
)

// ActorKey is the gin context key holding the authenticated services.Actor.
const ActorKey = "actor"

// AuthMiddleware validates the bearer token and stores the caller as an Actor.
// When db is set, callers whose local user row is blocked are refused.
func AuthMiddleware(secret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header")
			utils.Unauthorized(c, "Please login for access")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.LogError("Invalid Bearer token format")
			utils.Unauthorized(c, "Please login for access")
			return
		}

		actor, err := ParseToken(tokenString, secret)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			return
		}

		if db != nil {
			var user models.User
			err := db.WithContext(c.Request.Context()).Select("id", "is_blocked").First(&user, actor.ID).Error
			switch {
			case err == nil && user.IsBlocked:
				utils.LogError("Blocked user attempted access: %d", actor.ID)
				utils.Forbidden(c, "Account is blocked")
				return
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				utils.LogError("User lookup failed for ID %d: %v", actor.ID, err)
				utils.InternalServerError(c, utils.ErrInternalServer)
				return
			}
		}

		c.Set(ActorKey, actor)
		utils.LogDebug("User %d authenticated with role %s", actor.ID, actor.Role)
		c.Next()
	}
}

// ParseToken verifies an HS256 token and extracts the user_id and role claims.
func ParseToken(tokenString, secret string) (services.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return services.Actor{}, err
	}
	if !token.Valid {
		return services.Actor{}, errors.New("token validation failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Actor{}, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID < 1 {
		return services.Actor{}, errors.New("user_id claim missing")
	}
	role, _ := claims["role"].(string)
	switch models.Role(role) {
	case models.RoleUser, models.RoleAdmin:
	default:
		return services.Actor{}, fmt.Errorf("unknown role %q", role)
	}

	return services.Actor{ID: uint(userID), Role: models.Role(role)}, nil
}

// AdminMiddleware lets only ADMIN actors through. It must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			utils.LogError("Actor not found in context")
			utils.Unauthorized(c, "Please login for access")
			return
		}
		if !actor.IsAdmin() {
			utils.LogError("Non-admin user attempted admin access: %d", actor.ID)
			utils.Forbidden(c, utils.ErrForbidden)
			return
		}
		c.Next()
	}
}

// InternalKeyMiddleware guards service-to-service endpoints with a shared key.
func InternalKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Internal-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			utils.LogError("Rejected internal call from %s", c.ClientIP())
			utils.Unauthorized(c, utils.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// CurrentActor returns the actor stored by AuthMiddleware.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}
