package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
func (testLogger) Debug(string, ...any) {}
func (testLogger) Trace(string, ...any) {}
func (testLogger) Fatal(string, ...any) {}

func TestSuggestedGasPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","result":{"ProposeGasPrice":"23"}}`))
	}))
	t.Cleanup(srv.Close)

	o := NewGasOracle(testLogger{}, srv.URL)
	price, err := o.SuggestedGasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, "23", price)
}

func TestSuggestedGasPrice_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	o := NewGasOracle(testLogger{}, srv.URL)
	_, err := o.SuggestedGasPrice(context.Background())
	require.Error(t, err)
}

func TestSuggestedGasPrice_MissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","result":{}}`))
	}))
	t.Cleanup(srv.Close)

	o := NewGasOracle(testLogger{}, srv.URL)
	_, err := o.SuggestedGasPrice(context.Background())
	require.Error(t, err)
}
