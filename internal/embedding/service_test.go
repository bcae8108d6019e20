package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nikhilbhutani/gradbot/internal/llm"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls  int
	inputs [][]string
	err    error
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.calls++
	f.inputs = append(f.inputs, req.Input)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func (f *fakeGateway) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Provider(string) (llm.Provider, error) {
	return nil, errors.New("not implemented")
}

type memCache struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.setKeys = append(c.setKeys, key)
	return nil
}

func TestEmbedBatches(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "")

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "chunk"
	}

	got, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, 250)
	require.Equal(t, 3, gw.calls)
	require.Len(t, gw.inputs[0], 100)
	require.Len(t, gw.inputs[2], 50)
}

func TestEmbedEmptyInput(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "")

	got, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, gw.calls)
}

func TestEmbedSingleCacheHit(t *testing.T) {
	gw := &fakeGateway{}
	cache := newMemCache()
	svc := NewService(gw, "text-embedding-3-small").WithCache(cache, time.Hour)

	first, err := svc.EmbedSingle(context.Background(), "induction schedule")
	require.NoError(t, err)
	require.Equal(t, 1, gw.calls)
	require.Len(t, cache.setKeys, 1)

	second, err := svc.EmbedSingle(context.Background(), "induction schedule")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, gw.calls, "cache hit must not reach the provider")
}

func TestEmbedSingleCacheFailureIsAMiss(t *testing.T) {
	gw := &fakeGateway{}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	svc := NewService(gw, "").WithCache(cache, time.Hour)

	got, err := svc.EmbedSingle(context.Background(), "induction schedule")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, 1, gw.calls)
}

func TestEmbedSingleDistinctKeysPerModel(t *testing.T) {
	cacheA := newMemCache()
	svcA := NewService(&fakeGateway{}, "model-a").WithCache(cacheA, time.Hour)
	svcB := NewService(&fakeGateway{}, "model-b").WithCache(cacheA, time.Hour)

	_, err := svcA.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)
	_, err = svcB.EmbedSingle(context.Background(), "same text")
	require.NoError(t, err)

	require.Len(t, cacheA.setKeys, 2)
	require.NotEqual(t, cacheA.setKeys[0], cacheA.setKeys[1])
}

func TestEmbedProviderError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("quota exceeded")}
	svc := NewService(gw, "")

	_, err := svc.EmbedSingle(context.Background(), "anything")
	require.Error(t, err)
}
