package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsence/user-service/internal/core/domain"
)

type sentEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func newTestClient(t *testing.T, baseURL string) *ResendClient {
	t.Helper()
	client, err := NewResendClient(Config{APIKey: "re_test", BaseURL: baseURL})
	require.NoError(t, err)
	return client
}

func TestResendClient_SendVerificationEmail(t *testing.T) {
	var got sentEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).SendVerificationEmail(context.Background(), domain.VerificationEmail{
		To:       "a@x.com",
		FullName: "Alice <A>",
		Link:     "https://accounts.example.com/api/v1/users/verify-email/u1/tok",
	})
	require.NoError(t, err)

	require.Equal(t, defaultFrom, got.From)
	require.Equal(t, []string{"a@x.com"}, got.To)
	require.Equal(t, verificationSubject, got.Subject)
	require.Contains(t, got.HTML, "Hello Alice &lt;A&gt;,")
	require.Contains(t, got.HTML, `href="https://accounts.example.com/api/v1/users/verify-email/u1/tok"`)
}

func TestResendClient_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"invalid request", http.StatusUnprocessableEntity, `{"message":"invalid from"}`, "invalid from"},
		{"bad key", http.StatusUnauthorized, `{"message":"API key is invalid"}`, "API key is invalid"},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, "slow down"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := newTestClient(t, srv.URL+"/").SendVerificationEmail(context.Background(), domain.VerificationEmail{To: "a@x.com"})
			require.ErrorIs(t, err, domain.ErrDeliveryRejected)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestResendClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestClient(t, url).SendVerificationEmail(context.Background(), domain.VerificationEmail{To: "a@x.com"})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrDeliveryRejected)
}

func TestNewResendClient_Defaults(t *testing.T) {
	c, err := NewResendClient(Config{})
	require.NoError(t, err)
	require.Equal(t, "https://api.resend.com/", c.client.BaseURL.String())
	require.Equal(t, defaultFrom, c.from)
}

func TestNewResendClient_BadBaseURL(t *testing.T) {
	_, err := NewResendClient(Config{BaseURL: "http://[::1"})
	require.Error(t, err)
}
