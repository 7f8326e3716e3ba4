package profile

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed profile.json
var bundledDemoProfile []byte

// Source supplies the bundled demo profile document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// EmbeddedSource serves the demo profile compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Fetch(context.Context) ([]byte, error) {
	return bundledDemoProfile, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

func fetchDocument(ctx context.Context, src Source) (json.RawMessage, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("demo profile is not valid JSON")
	}
	return json.RawMessage(data), nil
}
