package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/factorytrack/factory-backend/internal/model"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBind_PermissionEnums(t *testing.T) {
	var ok model.CreatePermissionRequest
	assert.Nil(t, bindBody(t, `{"module":"reports","action":"export","resource":"sales_report"}`, &ok))

	var bad model.CreatePermissionRequest
	fields := bindBody(t, `{"module":"warehouse","action":"fly"}`, &bad)
	assert.Equal(t, "module must be a known module", fields["module"])
	assert.Equal(t, "action must be a known action", fields["action"])
}

func TestBind_JSONFieldNames(t *testing.T) {
	var req model.ReplacePermissionsRequest
	fields := bindBody(t, `{}`, &req)
	assert.Contains(t, fields, "permission_ids")

	fields = bindBody(t, `{"permission_ids":[1,0]}`, &req)
	assert.Contains(t, fields, "permission_ids[1]")
}

func TestBind_MalformedJSON(t *testing.T) {
	var req model.LoginRequest
	fields := bindBody(t, `{"username":`, &req)
	assert.Contains(t, fields, "detail")
}
