package encode

import (
	"context"
	"testing"

	"github.com/corvid-labs/hybridqa/index"
)

type noopEncoder struct{}

func (noopEncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{0}, nil
}

func (noopEncoder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0}
	}
	return out, nil
}

func TestRegistryDPRRegisteredByDefault(t *testing.T) {
	found := false
	for _, name := range List() {
		if name == "dpr" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected \"dpr\" in List(), got %v", List())
	}
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	if _, err := Get("does-not-exist", Config{}); err == nil {
		t.Fatal("expected error for unregistered provider name")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	Register("noop-test", func(cfg Config) (index.Encoder, error) {
		return noopEncoder{}, nil
	})
	enc, err := Get("noop-test", Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := enc.(noopEncoder); !ok {
		t.Errorf("Get returned %T, want noopEncoder", enc)
	}
}
