// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

const actorKey = "actor"

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			key := i18n.KeyAuthInvalidToken
			if strings.Contains(err.Error(), "expired") {
				key = i18n.KeyAuthTokenExpired
			}
			utils.UnauthorizedResponse(c, i18n.T(lang, key))
			c.Abort()
			return
		}

		actor, ok := actorFromClaims(claims)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		// Set user info in context
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFromClaims rejects tokens whose role lacks the organisation it acts for.
func actorFromClaims(claims *utils.JWTClaims) (services.Actor, bool) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return services.Actor{}, false
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return services.Actor{}, false
	}

	companyID, err := utils.OptionalUUID(claims.CompanyID)
	if err != nil {
		return services.Actor{}, false
	}
	centerID, err := utils.OptionalUUID(claims.StudyCenterID)
	if err != nil {
		return services.Actor{}, false
	}

	switch role {
	case models.RoleCompany:
		if companyID == nil {
			return services.Actor{}, false
		}
		return services.CompanyActor(userID, *companyID), true
	case models.RoleStudyCenter:
		if centerID == nil {
			return services.Actor{}, false
		}
		return services.StudyCenterActor(userID, *centerID), true
	case models.RoleStudent:
		return services.StudentActor(userID), true
	default:
		return services.Actor{UserID: userID, Role: role}, true
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		utils.ForbiddenResponse(c, "")
		c.Abort()
	}
}

func AdminRequired() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// GetActor returns the authenticated actor set by AuthRequired.
func GetActor(c *gin.Context) (services.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := value.(services.Actor)
	return actor, ok
}
