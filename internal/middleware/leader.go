package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

// LeaderCodeHeader carries the six digit code of a team leader session.
const LeaderCodeHeader = "X-Leader-Code"

type leaderResolver interface {
	Resolve(ctx context.Context, code string) (*models.Team, error)
}

// LeaderCode authenticates leader portal routes. The resolved team becomes the actor.
func LeaderCode(resolver leaderResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.TrimSpace(c.GetHeader(LeaderCodeHeader))
		if code == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "leader code required"))
			c.Abort()
			return
		}

		team, err := resolver.Resolve(c.Request.Context(), code)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		setActor(c, models.LeaderActor(team))
		c.Next()
	}
}
