package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImageResolveBytes(t *testing.T) {
	t.Parallel()

	data, err := ImageFromBytes([]byte{0xff, 0xd8}).Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, data)

	_, err = ImageFromBytes(nil).Resolve(context.Background(), nil)
	require.Error(t, err)
}

func TestImageResolveURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	img := ImageFromURL(srv.URL + "/image_0.jpg")
	data, err := img.Resolve(context.Background(), srv.Client())
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)
	require.Equal(t, srv.URL+"/image_0.jpg", img.URL())
}

func TestImageResolveURLNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := ImageFromURL(srv.URL).Resolve(context.Background(), srv.Client())
	require.ErrorContains(t, err, "status 404")
}

func TestServiceClientEmbedText(t *testing.T) {
	t.Parallel()

	vec := make([]float32, 768)
	vec[0] = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embed/text", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Classic Denim Jacket. Oversized fit", req["text"])
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
	defer srv.Close()

	client := NewServiceClient(ServiceConfig{BaseURL: srv.URL, Dimension: 768}, zap.NewNop())
	got, err := client.EmbedText(context.Background(), "Classic Denim Jacket. Oversized fit")
	require.NoError(t, err)
	require.Len(t, got, 768)
	require.Equal(t, float32(1), got[0])
}

func TestServiceClientDimensionMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1, 2, 3}})
	}))
	defer srv.Close()

	client := NewServiceClient(ServiceConfig{BaseURL: srv.URL, Dimension: 768}, zap.NewNop())
	_, err := client.EmbedImage(context.Background(), []byte("img"))
	require.ErrorContains(t, err, "dimension")
}

func TestServiceClientCaption(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/caption", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"caption": "a blue denim jacket"})
	}))
	defer srv.Close()

	client := NewServiceClient(ServiceConfig{BaseURL: srv.URL}, zap.NewNop())
	caption, err := client.Caption(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "a blue denim jacket", caption)
}
