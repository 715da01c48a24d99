package finnhub_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockscreener/internal/provider"
	"stockscreener/internal/provider/finnhub"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	// Assert: a client is always returned, with or without a key.
	require.NotNil(t, finnhub.NewClient("test"))
	require.NotNil(t, finnhub.NewClient(""))
	require.Equal(t, "Finnhub", finnhub.NewClient("test").Name())
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: define a base url
	baseURL := "http://localhost:8080"

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			return jsonResponse(t, http.StatusOK, map[string]any{"count": 0, "result": []any{}}), nil
		}).
		Times(1)

	// Arrange: create a new client.
	client := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient), finnhub.WithBaseURL(baseURL))

	// Act: call SearchSymbols with the overridden base URL.
	_, err := client.SearchSymbols(t.Context(), "AAPL")
	require.NoError(t, err)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the custom header is sent along with Accept
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))
			require.Equal(t, "application/json", req.Header.Get("Accept"))
			return jsonResponse(t, http.StatusOK, map[string]any{"result": []any{}}), nil
		}).
		Times(1)

	// Arrange: create a new client with a custom header.
	client := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient), finnhub.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))

	// Act: call SearchSymbols with the custom header.
	_, err := client.SearchSymbols(t.Context(), "AAPL")
	require.NoError(t, err)
}

func TestMissingKey_NoRequest(t *testing.T) {
	t.Parallel()

	// Arrange: a client without a key must never reach the transport
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := finnhub.NewClient("", finnhub.WithHTTPClient(httpClient))

	// Act + Assert
	_, err := client.SearchSymbols(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrMissingCredential)

	_, err = client.Candles(t.Context(), provider.CandleQuery{Symbol: "AAPL", Resolution: "D"})
	require.ErrorIs(t, err, provider.ErrMissingCredential)
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) { require.ErrorIs(t, err, provider.ErrRateLimited) }},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) { require.ErrorIs(t, err, provider.ErrUnauthorized) }},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) { require.ErrorIs(t, err, provider.ErrUnauthorized) }},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var se *provider.StatusError
			require.True(t, errors.As(err, &se))
			require.Equal(t, http.StatusInternalServerError, se.Code)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: create a mock controller and http client
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(&http.Response{StatusCode: tc.status, Body: io.NopCloser(bytes.NewReader(nil))}, nil).
				Times(1)

			client := finnhub.NewClient("test", finnhub.WithHTTPClient(httpClient))

			// Act
			res, err := client.Candles(t.Context(), provider.CandleQuery{Symbol: "AAPL", Resolution: "D"})

			// Assert
			require.Nil(t, res)
			tc.check(t, err)
		})
	}
}

// jsonResponse encodes body as an HTTP response with the given status.
func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(buffer),
	}
}
