package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/require"

	"github.com/mocher01/agixt-configs-sub000/pkg/fetch"
)

func testHTTPClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	return client
}

func TestFetchReturnsFirstExistingCandidate(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/repos/mocher01/agixt-configs/contents/agixt.config" {
			w.Write([]byte("AGIXT_VERSION=v1.4.0\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := fetch.NewClient(
		fetch.WithBaseURL(server.URL),
		fetch.WithHTTPClient(testHTTPClient()),
	)

	result, err := client.Fetch(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, "agixt.config", result.Name)
	require.Equal(t, "AGIXT_VERSION=v1.4.0\n", string(result.Content))

	require.Equal(t, []string{
		"/repos/mocher01/agixt-configs/contents/demo.env",
		"/repos/mocher01/agixt-configs/contents/agixt.config",
	}, requested)
}

func TestFetchSendsAcceptAndTokenHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/vnd.github.v3.raw", r.Header.Get("Accept"))
		require.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		w.Write([]byte("MODEL_NAME=mistral\n"))
	}))
	defer server.Close()

	client := fetch.NewClient(
		fetch.WithBaseURL(server.URL),
		fetch.WithHTTPClient(testHTTPClient()),
		fetch.WithToken("ghp_test"),
	)

	result, err := client.Fetch(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, "demo.env", result.Name)
}

func TestFetchReportsNotFoundWhenAllCandidatesMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := fetch.NewClient(
		fetch.WithBaseURL(server.URL),
		fetch.WithHTTPClient(testHTTPClient()),
	)

	_, err := client.Fetch(context.Background(), "demo")
	require.Error(t, err)
	require.True(t, errors.Is(err, fetch.ErrNotFound))
}

func TestFetchAbortsOnAccessDenied(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := fetch.NewClient(
		fetch.WithBaseURL(server.URL),
		fetch.WithHTTPClient(testHTTPClient()),
	)

	_, err := client.Fetch(context.Background(), "demo")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
	require.Equal(t, 1, calls, "denied access must not fall through to other candidates")
}

func TestFetchQueriesConfiguredRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "develop", r.URL.Query().Get("ref"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := fetch.NewClient(
		fetch.WithBaseURL(server.URL),
		fetch.WithHTTPClient(testHTTPClient()),
		fetch.WithRef("develop"),
	)

	_, err := client.Fetch(context.Background(), "demo")
	require.NoError(t, err)
}
