package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debugInitData() string {
	v := url.Values{}
	v.Set("auth_date", "1704960000")
	v.Set("user", `{"id":5060715466,"first_name":"Bob","username":"defi_master"}`)
	v.Set("hash", "ignored-in-debug")
	return v.Encode()
}

func TestExtractTelegramData(t *testing.T) {
	data, err := ExtractTelegramData(debugInitData())
	require.NoError(t, err)

	assert.Equal(t, int64(5060715466), data.ID)
	assert.Equal(t, "defi_master", data.Username)
	assert.Equal(t, "Bob", data.FirstName)
	assert.Equal(t, int64(1704960000), data.AuthDate.Unix())

	_, err = ExtractTelegramData("auth_date=abc")
	assert.Error(t, err)
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		debug      bool
		header     string
		wantStatus int
	}{
		{name: "Missing header", debug: true, wantStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", debug: true, header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "Debug mode skips signature", debug: true, header: "Telegram " + debugInitData(), wantStatus: http.StatusOK},
		{name: "Bad signature", debug: false, header: "Telegram " + debugInitData(), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me", NewTelegramAuth("123:token", tt.debug).TelegramAuthMiddleware(), func(c *gin.Context) {
				user, ok := UserFromContext(c)
				require.True(t, ok)
				c.JSON(http.StatusOK, gin.H{"id": user.ID})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
