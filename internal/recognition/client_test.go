package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(url string) *HTTPClient {
	return NewHTTPClient(url, time.Second, WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}))
}

func TestRecognizeUploadsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "gate.jpg", header.Filename)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"vehicle_types":     []string{"car"},
			"recognized_plates": []string{"", " wp cab-1234 "},
		})
	}))
	defer srv.Close()

	result, err := fastClient(srv.URL).Recognize(context.Background(), "gate.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"car"}, result.VehicleTypes)
	assert.Equal(t, "wp cab-1234", result.BestPlate())
}

func TestRecognizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"vehicle_types":[],"recognized_plates":["ABC123"]}`))
	}))
	defer srv.Close()

	result, err := fastClient(srv.URL).Recognize(context.Background(), "", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "ABC123", result.BestPlate())
	assert.Equal(t, int32(3), calls.Load())
}

func TestRecognizeGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Recognize(context.Background(), "", []byte("x"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRecognizeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "not an image", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Recognize(context.Background(), "", []byte("x"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "not an image", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecognizeNotConfigured(t *testing.T) {
	_, err := NewHTTPClient("", time.Second).Recognize(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBestPlate(t *testing.T) {
	assert.Equal(t, "", (*Result)(nil).BestPlate())
	assert.Equal(t, "", (&Result{Plates: []string{" ", ""}}).BestPlate())
	assert.Equal(t, "A1", (&Result{Plates: []string{"A1", "B2"}}).BestPlate())
}
