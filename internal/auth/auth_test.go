package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer("asistencia", "test-key", "1234", time.Hour, 24*time.Hour)
}

func TestPair(t *testing.T) {
	i := newTestIssuer()

	_, err := i.Pair("", "1234")
	assert.ErrorIs(t, err, ErrMissingDeviceID)
	_, err = i.Pair("tablet-1", "0000")
	assert.ErrorIs(t, err, ErrBadPairingCode)

	pair, err := i.Pair("tablet-1", "1234")
	require.NoError(t, err)
	claims, err := i.Parse(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "tablet-1", claims.Subject)
	assert.Equal(t, "asistencia", claims.Issuer)

	_, err = i.Parse(pair.RefreshToken, KindAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestPairWithoutConfiguredCode(t *testing.T) {
	i := NewIssuer("asistencia", "k", "", time.Hour, time.Hour)
	_, err := i.Pair("tablet-1", "")
	assert.ErrorIs(t, err, ErrBadPairingCode)
}

func TestRefresh(t *testing.T) {
	i := newTestIssuer()
	pair, err := i.Pair("tablet-1", "1234")
	require.NoError(t, err)

	_, err = i.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	next, err := i.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := i.Parse(next.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "tablet-1", claims.Subject)
}

func TestParseRejectsForeignAndExpired(t *testing.T) {
	i := newTestIssuer()
	other := NewIssuer("asistencia", "other-key", "1234", time.Hour, time.Hour)
	pair, err := other.Pair("tablet-1", "1234")
	require.NoError(t, err)
	_, err = i.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-48 * time.Hour)
	old := newTestIssuer()
	old.now = func() time.Time { return past }
	pair, err = old.Pair("tablet-1", "1234")
	require.NoError(t, err)
	_, err = i.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeviceAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i := newTestIssuer()
	r := gin.New()
	r.GET("/x", DeviceAuth(i), func(c *gin.Context) {
		claims := c.MustGet(ClaimsKey).(Claims)
		c.String(http.StatusOK, claims.Subject)
	})

	pair, err := i.Pair("tablet-1", "1234")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"access token", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "tablet-1", w.Body.String())
			}
		})
	}
}
