package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/middleware"
	"github.com/noah-isme/classquest-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

var (
	teacherActor = models.Actor{OwnerID: "owner-1", UserID: "owner-1"}
	leaderActor  = models.Actor{OwnerID: "owner-1", TeamID: "t-1", Leader: true}
)

// newContext builds a test context. A nil actor leaves the request unauthenticated.
func newContext(method, target, body string, actor *models.Actor, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	if actor != nil {
		c.Set(middleware.ContextActorKey, *actor)
	}
	return c, rec
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope
}
