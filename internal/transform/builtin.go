package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/curatehub/curatehub/internal/model"
)

// Template renders the item through a text/template taken from the stage
// config ("template" key). The rendered output replaces Text.
type Template struct{}

func (Template) Apply(_ context.Context, cfg map[string]any, c model.PipelineContent) (model.PipelineContent, error) {
	raw, _ := cfg["template"].(string)
	if raw == "" {
		return c, errors.New("template transformer: missing template config")
	}
	tmpl, err := template.New("stage").Parse(raw)
	if err != nil {
		return c, fmt.Errorf("template transformer: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, c); err != nil {
		return c, fmt.Errorf("template transformer: %w", err)
	}
	c.Text = buf.String()
	return c, nil
}

// ApplyBatch joins the rendered items with the configured separator
// (default "\n\n") into a single digest item.
func (t Template) ApplyBatch(ctx context.Context, cfg map[string]any, items []model.PipelineContent) ([]model.PipelineContent, error) {
	if len(items) == 0 {
		return items, nil
	}
	sep, _ := cfg["separator"].(string)
	if sep == "" {
		sep = "\n\n"
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		rendered, err := t.Apply(ctx, cfg, item)
		if err != nil {
			return items, err
		}
		parts = append(parts, rendered.Text)
	}
	digest := items[0]
	digest.Text = strings.Join(parts, sep)
	return []model.PipelineContent{digest}, nil
}

// Prefix prepends a fixed string to Text ("prefix" key).
type Prefix struct{}

func (Prefix) Apply(_ context.Context, cfg map[string]any, c model.PipelineContent) (model.PipelineContent, error) {
	p, _ := cfg["prefix"].(string)
	if p == "" {
		return c, errors.New("prefix transformer: missing prefix config")
	}
	c.Text = p + c.Text
	return c, nil
}

// Truncate caps Text at "maxLength" runes, appending an ellipsis when cut.
type Truncate struct{}

func (Truncate) Apply(_ context.Context, cfg map[string]any, c model.PipelineContent) (model.PipelineContent, error) {
	max := intConfig(cfg, "maxLength")
	if max <= 0 {
		return c, errors.New("truncate transformer: missing maxLength config")
	}
	runes := []rune(c.Text)
	if len(runes) > max {
		c.Text = string(runes[:max]) + "…"
	}
	return c, nil
}

// intConfig reads an int from decoded JSON, which arrives as float64.
func intConfig(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// RegisterBuiltins installs the stock transformers.
func RegisterBuiltins(r *Registry) {
	r.Register("template", Template{})
	r.Register("prefix", Prefix{})
	r.Register("truncate", Truncate{})
}
