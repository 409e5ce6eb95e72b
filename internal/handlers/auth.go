package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/compedu/quiz-service/internal/config"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/utils"
)

const contextKeyClaims = "auth_claims"

// JWTAuthMiddleware verifies platform-issued bearer tokens and places
// the extracted claims into the request context.
type JWTAuthMiddleware struct {
	secret []byte
	issuer string
	logger utils.Logger
}

func NewJWTAuthMiddleware(cfg config.JWTConfig, logger utils.Logger) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		logger: logger,
	}
}

func (m *JWTAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing or malformed Authorization header",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.logger.Warn("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		if m.issuer != "" {
			if iss, _ := claims["iss"].(string); iss != m.issuer {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
					Message: "Invalid token issuer",
				})
				return
			}
		}

		authClaims, err := claimsFromToken(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid token claims",
				Details: err.Error(),
			})
			return
		}

		c.Set(contextKeyClaims, authClaims)
		c.Set("user_id", authClaims.UserID)
		c.Next()
	}
}

func claimsFromToken(claims jwt.MapClaims) (models.AuthClaims, error) {
	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return models.AuthClaims{}, fmt.Errorf("token carries no subject")
	}

	name, _ := claims["name"].(string)
	department, _ := claims["department"].(string)

	role := models.RoleEmployee
	if raw, ok := claims["role"].(string); ok && raw != "" {
		role = models.UserRole(raw)
	}

	return models.AuthClaims{
		UserID:     userID,
		Name:       name,
		Department: department,
		Role:       role,
	}, nil
}

// RequireRoleMiddleware gates a route group to the listed roles.
func RequireRoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		v, exists := c.Get(contextKeyClaims)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}

		claims, ok := v.(models.AuthClaims)
		if !ok || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Insufficient role",
			})
			return
		}

		c.Next()
	}
}
