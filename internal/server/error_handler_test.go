// file: internal/server/error_handler_test.go
// version: 2.0.0
// guid: c9c77157-8161-4743-ba1a-fe98eb293b46

package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRespondWithBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	RespondWithBadRequest(c, "test error")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), "test error") {
		t.Errorf("expected error message in response, got %q", w.Body.String())
	}
}

func TestRespondWithNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	RespondWithNotFound(c, "run", "01HZY")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), "run not found: 01HZY") {
		t.Errorf("expected 'run not found' in response, got %q", w.Body.String())
	}
}

func TestRespondWithInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	RespondWithInternalError(c, "database error")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("expected INTERNAL_ERROR code, got %q", w.Body.String())
	}
}

func TestRespondWithUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	RespondWithUnavailable(c, "resolver not configured")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestHandleBindError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	if HandleBindError(c, nil) {
		t.Error("expected nil error to be ignored")
	}
	if !HandleBindError(c, errors.New("unexpected EOF")) {
		t.Error("expected bind error to be handled")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid request: unexpected EOF") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestParseQueryInt(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?limit=25&bad=x", nil)

	if value := ParseQueryInt(c, "limit", 50); value != 25 {
		t.Errorf("expected 25, got %d", value)
	}
	if value := ParseQueryInt(c, "offset", 0); value != 0 {
		t.Errorf("expected 0, got %d", value)
	}
	if value := ParseQueryInt(c, "bad", 7); value != 7 {
		t.Errorf("expected default for malformed value, got %d", value)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"/", 20},
		{"/?limit=5", 5},
		{"/?limit=0", 20},
		{"/?limit=-3", 20},
		{"/?limit=9999", 500},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", tt.query, nil)
		if got := ParseLimit(c, 20, 500); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.want, got)
		}
	}
}
