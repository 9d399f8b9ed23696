// Package baseline retrieves the read-only document a session is seeded from.
package baseline

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-staged/internal/hydrate"
	"github.com/goliatone/go-staged/model"
)

// ErrFetch is wrapped by every *FetchError.
var ErrFetch = errors.New("baseline: fetch failed")

// FetchError reports a baseline that could not be retrieved or was malformed.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ErrFetch.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s from %s", ErrFetch, e.Source)
	}
	return fmt.Sprintf("%s from %s: %v", ErrFetch, e.Source, e.Err)
}

// Unwrap exposes both ErrFetch and the underlying cause to errors.Is.
func (e *FetchError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// Source delivers one baseline document. Implementations return *FetchError
// on failure.
type Source interface {
	Fetch(ctx context.Context) (model.Document, error)
	// Name identifies the source in logs and errors.
	Name() string
}

var documentDecoder = hydrate.NewDecoder(
	hydrate.WithPreHook[model.Document](requireFeatures),
)

func requireFeatures(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["features"]
	if !ok {
		return nil, errors.New(`missing "features"`)
	}
	if _, isList := raw.([]any); !isList && raw != nil {
		return nil, fmt.Errorf(`"features" must be a list, got %T`, raw)
	}
	return payload, nil
}

// decode turns a parsed payload into a validated document.
func decode(name string, payload map[string]any) (model.Document, error) {
	doc, err := documentDecoder.Decode(hydrate.Context{Source: name}, payload)
	if err != nil {
		return model.Document{}, &FetchError{Source: name, Err: err}
	}
	if doc.Features == nil {
		doc.Features = []model.Feature{}
	}
	if err := model.Validate(doc.State()); err != nil {
		return model.Document{}, &FetchError{Source: name, Err: err}
	}
	return doc, nil
}

// Static serves a fixed document, for tests and embedding.
type Static model.Document

func (s Static) Name() string { return "static" }

func (s Static) Fetch(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: err}
	}
	doc := model.Document{Features: model.Clone(s.Features)}
	if doc.Features == nil {
		doc.Features = []model.Feature{}
	}
	if err := model.Validate(doc.State()); err != nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: err}
	}
	return doc, nil
}
