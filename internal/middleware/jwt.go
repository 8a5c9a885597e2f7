package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/logger"
	"github.com/noah-isme/classquest-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextActorKey stores the models.Actor every core call is scoped by.
	ContextActorKey = "currentActor"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects teacher console routes by requiring a valid access token.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		setActor(c, models.TeacherActor(claims))
		c.Next()
	}
}

// ActorFromContext returns the actor attached by JWT or LeaderCode.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	if !ok || actor.OwnerID == "" {
		return models.Actor{}, false
	}
	return actor, true
}

func setActor(c *gin.Context, actor models.Actor) {
	c.Set(ContextActorKey, actor)
	if actor.Leader {
		c.Set(logger.ActorKey, "team:"+actor.TeamID)
		return
	}
	c.Set(logger.ActorKey, "owner:"+actor.OwnerID)
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
