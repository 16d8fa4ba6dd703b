package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chimeralens/api/internal/models"
)

func TestResolveUnknownKey(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve("perm-machine-3000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStyleYourHairInput(t *testing.T) {
	registry := NewRegistry()
	adapter, err := registry.Resolve("style-your-hair")
	require.NoError(t, err)

	tpl := models.HairstyleTemplate{ImageURL: "https://cdn/templates/bob.png"}
	input := adapter.ShapeInput("https://cdn/uploads/client.png", tpl, map[string]any{
		"haircut": "ignored, this model takes none",
	})

	assert.Equal(t, map[string]any{
		"source_image": "https://cdn/uploads/client.png",
		"target_image": "https://cdn/templates/bob.png",
	}, input)
}

func TestHairClipInput(t *testing.T) {
	registry := NewRegistry()
	adapter, err := registry.Resolve("hairclip")
	require.NoError(t, err)

	input := adapter.ShapeInput("https://cdn/uploads/client.png", models.HairstyleTemplate{}, map[string]any{
		"editing_type":          "both",
		"color_description":     "red",
		"hairstyle_description": "bob cut hairstyle",
		"unrelated":             true,
	})

	assert.Equal(t, map[string]any{
		"editing_type":          "both",
		"color_description":     "red",
		"hairstyle_description": "bob cut hairstyle",
		"image":                 "https://cdn/uploads/client.png",
	}, input)
}

func TestChangeHaircutDefaults(t *testing.T) {
	registry := NewRegistry()
	adapter, err := registry.Resolve("change-haircut")
	require.NoError(t, err)

	input := adapter.ShapeInput("https://cdn/uploads/client.png", models.HairstyleTemplate{}, nil)

	assert.Equal(t, map[string]any{
		"aspect_ratio":  "match_input_image",
		"output_format": "png",
		"input_image":   "https://cdn/uploads/client.png",
	}, input)
}

func TestChangeHaircutOptionOverrides(t *testing.T) {
	registry := NewRegistry()
	adapter, err := registry.Resolve("change-haircut")
	require.NoError(t, err)

	input := adapter.ShapeInput("https://cdn/uploads/client.png", models.HairstyleTemplate{}, map[string]any{
		"gender":        "female",
		"haircut":       "Pixie",
		"hair_color":    "Blonde",
		"output_format": "jpg",
		"input_image":   "https://evil/override.png",
	})

	// The source image slot is set last and cannot be spoofed from options.
	assert.Equal(t, "https://cdn/uploads/client.png", input["input_image"])
	assert.Equal(t, "female", input["gender"])
	assert.Equal(t, "Pixie", input["haircut"])
	assert.Equal(t, "Blonde", input["hair_color"])
	assert.Equal(t, "jpg", input["output_format"])
	assert.Equal(t, "match_input_image", input["aspect_ratio"])
}

func TestAdapterModelIDs(t *testing.T) {
	registry := NewRegistry()
	for _, key := range []string{"style-your-hair", "hairclip", "change-haircut"} {
		adapter, err := registry.Resolve(key)
		require.NoError(t, err)
		assert.Contains(t, adapter.Model(), ":", "model id %q carries a version", key)
	}
}
