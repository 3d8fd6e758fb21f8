package engine

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	a, err := h.Embed(ctx, "I run every morning before work")
	require.NoError(t, err)
	require.Len(t, a, 256)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-5)

	again, err := h.Embed(ctx, "i RUN every morning, before work!")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(a, again), 1e-5)

	near, _ := h.Embed(ctx, "I run every evening after work")
	far, _ := h.Embed(ctx, "my sister adopted a kitten")
	assert.Greater(t, dot(a, near), dot(a, far))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	h := NewHashEmbedder(0)
	assert.Equal(t, 512, h.Dimensions())
	assert.Equal(t, "hash:512", h.Model())

	v, err := h.Embed(context.Background(), "?!")
	require.NoError(t, err)
	assert.Equal(t, float32(1), v[0])
}

type countingEmbedder struct {
	calls atomic.Int32
	inner Embedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}
func (c *countingEmbedder) Model() string   { return c.inner.Model() }
func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(64)}
	c, err := NewCachedEmbedder(inner, 100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	first, err := c.Embed(ctx, "walks the dog")
	require.NoError(t, err)
	c.Wait()

	second, err := c.Embed(ctx, "walks the dog")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = c.Embed(ctx, "feeds the cat")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "hash:64", c.Model())
	assert.Equal(t, 64, c.Dimensions())
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Model != "nomic-embed-text" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.6, 0.8, 0}}})
	}))
	defer srv.Close()

	o := NewOllamaEmbedder(srv.URL, "nomic-embed-text", 3)
	v, err := o.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8, 0}, v)
	assert.Equal(t, "ollama:nomic-embed-text", o.Model())

	assert.True(t, ProbeOllama(srv.URL, "nomic-embed-text"))
	assert.False(t, ProbeOllama(srv.URL, "other-model"))

	bad := NewOllamaEmbedder(srv.URL, "other-model", 3)
	_, err = bad.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewEmbedderFallsBackToHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e, err := NewEmbedder(srv.URL, "missing", 128, 10)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, "hash:128", e.Model())

	e2, err := NewEmbedder("", "", 32, 10)
	require.NoError(t, err)
	defer e2.Close()
	assert.Equal(t, "hash:32", e2.Model())
}

func TestTokenizeScripts(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"I run, daily!", []string{"run", "daily"}},
		{"Сегодня я сдал экзамен", []string{"сегодня", "сдал", "экзамен"}},
		{"Ήπια καφέ", []string{"ήπια", "καφέ"}},
		{"東京で寿司", []string{"東京", "京で", "で寿", "寿司"}},
		{"猫", []string{"猫"}},
		{"ate 寿司 today", []string{"ate", "寿司", "today"}},
		{"?! ... ***", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.text), tt.text)
	}
}

func TestHashEmbedderSeparatesNonLatinText(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	exam, err := h.Embed(ctx, "Сегодня я сдал экзамен по физике")
	require.NoError(t, err)
	dog, err := h.Embed(ctx, "Моя собака заболела, ходили к ветеринару")
	require.NoError(t, err)
	sushi, err := h.Embed(ctx, "東京で寿司を食べました")
	require.NoError(t, err)

	assert.NotEqual(t, float32(1), exam[0], "cyrillic text embedded as empty")
	assert.Less(t, dot(exam, dog), 0.5)
	assert.Less(t, dot(exam, sushi), 0.5)
	assert.Less(t, dot(dog, sushi), 0.5)
}
