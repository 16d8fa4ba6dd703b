package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeOptionsOverridesWin(t *testing.T) {
	base := map[string]any{"haircut": "Bob", "hair_color": "Black"}
	overrides := map[string]any{"hair_color": "Red"}

	merged := MergeOptions(base, overrides)

	assert.Equal(t, map[string]any{"haircut": "Bob", "hair_color": "Red"}, merged)
	assert.Equal(t, "Black", base["hair_color"], "inputs stay untouched")
}

func TestMergeOptionsNilInputs(t *testing.T) {
	merged := MergeOptions(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)

	merged["haircut"] = "Pixie"
	assert.Len(t, merged, 1, "result is always writable")
}

func TestMergeOptionsFreshMap(t *testing.T) {
	base := map[string]any{"gender": "male"}
	merged := MergeOptions(base, nil)

	merged["gender"] = "female"
	assert.Equal(t, "male", base["gender"])
}
