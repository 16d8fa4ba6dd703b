package generation

import (
	"fmt"

	"chimeralens/api/internal/models"
)

// ModelAdapter binds a model key to its provider identifier and its
// input-shaping rule. ShapeInput is pure: it decides which fields of the
// merged option bag matter for its model and ignores the rest.
type ModelAdapter interface {
	// Model returns the provider model id, "owner/name:version".
	Model() string
	// ShapeInput builds the provider-specific input object from the
	// optimized source image URL, the template record and the merged
	// option bag.
	ShapeInput(sourceURL string, tpl models.HairstyleTemplate, opts map[string]any) map[string]any
}

// Registry is the process-wide, read-only model table. It is populated once
// by NewRegistry and never mutated afterwards.
type Registry struct {
	adapters map[string]ModelAdapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]ModelAdapter{
		"style-your-hair": styleYourHair{},
		"hairclip":        hairClip{},
		"change-haircut":  changeHaircut{},
	}}
}

// Resolve returns the adapter for a model key. A key that no longer (or
// never did) resolve is a runtime lookup failure, not a template defect:
// templates are allowed to outlive registry changes.
func (r *Registry) Resolve(modelKey string) (ModelAdapter, error) {
	adapter, ok := r.adapters[modelKey]
	if !ok {
		return nil, fmt.Errorf("%w: model key %q", ErrNotFound, modelKey)
	}
	return adapter, nil
}

// styleYourHair transfers the hairstyle from the template's reference photo
// onto the client photo. It takes no options.
type styleYourHair struct{}

func (styleYourHair) Model() string {
	return "cjwbw/style-your-hair:c4c7e5a657e2e1abccd57625093522a9928edeccee77e3f55d57c664bcd96fa2"
}

func (styleYourHair) ShapeInput(sourceURL string, tpl models.HairstyleTemplate, _ map[string]any) map[string]any {
	return map[string]any{
		"source_image": sourceURL,
		"target_image": tpl.ImageURL,
	}
}

// hairClip edits hair via text descriptions; options select what to edit.
type hairClip struct{}

func (hairClip) Model() string {
	return "wty-ustc/hairclip:b95cb2a16763bea87ed7ed851d5a3ab2f4655e94bcfb871edba029d4814fa587"
}

func (hairClip) ShapeInput(sourceURL string, _ models.HairstyleTemplate, opts map[string]any) map[string]any {
	input := map[string]any{}
	copyOptions(input, opts, "editing_type", "color_description", "hairstyle_description")
	input["image"] = sourceURL
	return input
}

// changeHaircut picks a named cut and color from the option bag.
type changeHaircut struct{}

func (changeHaircut) Model() string {
	return "flux-kontext-apps/change-haircut:9c5081907a71f01c7c9360cd753f191757a3e79043e06173a0a65b210287a151"
}

func (changeHaircut) ShapeInput(sourceURL string, _ models.HairstyleTemplate, opts map[string]any) map[string]any {
	input := map[string]any{
		"aspect_ratio":  "match_input_image",
		"output_format": "png",
	}
	copyOptions(input, opts, "gender", "haircut", "hair_color", "aspect_ratio", "output_format")
	input["input_image"] = sourceURL
	return input
}

func copyOptions(dst map[string]any, src map[string]any, keys ...string) {
	for _, key := range keys {
		if v, ok := src[key]; ok {
			dst[key] = v
		}
	}
}
