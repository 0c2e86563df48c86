package branch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBranchMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		fromToken string
		header    string
		want      string
	}{
		{"header wins", "b1", "b2", "b2"},
		{"token fallback", "b1", "", "b1"},
		{"none", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotGin, gotCtx string
			router := gin.New()
			router.Use(func(c *gin.Context) {
				if tt.fromToken != "" {
					c.Set("branch_id", tt.fromToken)
				}
				c.Next()
			})
			router.Use(BranchMiddleware())
			router.GET("/", func(c *gin.Context) {
				gotGin = c.GetString("branch_id")
				gotCtx = GetBranchID(c.Request.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderName, tt.header)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, gotGin)
			assert.Equal(t, tt.want, gotCtx)
		})
	}
}
