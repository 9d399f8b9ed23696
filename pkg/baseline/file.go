package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-staged/model"
)

// FileSource reads the document from disk. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Fetch(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: err}
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: err}
	}

	var payload map[string]any
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &payload)
	default:
		err = json.Unmarshal(raw, &payload)
	}
	if err != nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: fmt.Errorf("parse: %w", err)}
	}
	if payload == nil {
		return model.Document{}, &FetchError{Source: s.Name(), Err: fmt.Errorf("empty document")}
	}
	return decode(s.Name(), payload)
}
