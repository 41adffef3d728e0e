package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bindMarkSeen(t *testing.T, body string) (markSeenReq, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/notify/seen", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req markSeenReq
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestMarkSeenAllowsZeroVersion(t *testing.T) {
	// version=0 是合法的空操作置读，不能被 required 校验挡掉
	req, err := bindMarkSeen(t, `{"userId":"u1","version":0}`)
	if err != nil {
		t.Fatalf("zero version must bind: %v", err)
	}
	if req.UserID != "u1" || req.Version != 0 {
		t.Fatalf("unexpected bind result: %+v", req)
	}
}

func TestMarkSeenRequiresUserID(t *testing.T) {
	if _, err := bindMarkSeen(t, `{"version":3}`); err == nil {
		t.Fatal("missing userId must fail binding")
	}
}

func TestMarkSeenRejectsNegativeVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/notify/seen",
		strings.NewReader(`{"userId":"u1","version":-1}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h := NewHandler(nil, nil)
	h.HandleMarkSeen(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative version, got %d", w.Code)
	}
}
