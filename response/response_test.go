package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perform(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSuccess(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) { Success(c, gin.H{"count": 2}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, body.Code)
	assert.Equal(t, "success", body.Msg)
	assert.Equal(t, map[string]interface{}{"count": float64(2)}, body.Data)
}

func TestErrors(t *testing.T) {
	cases := []struct {
		handler gin.HandlerFunc
		status  int
	}{
		{func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest},
		{func(c *gin.Context) { NotFound(c, "bad") }, http.StatusNotFound},
		{func(c *gin.Context) { Conflict(c, "bad") }, http.StatusConflict},
		{func(c *gin.Context) { UnprocessableEntity(c, "bad") }, http.StatusUnprocessableEntity},
		{func(c *gin.Context) { InternalError(c, "bad") }, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w, body := perform(t, tc.handler)
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, CodeError, body.Code)
		assert.Equal(t, "bad", body.Msg)
		assert.Nil(t, body.Data)
	}
}
