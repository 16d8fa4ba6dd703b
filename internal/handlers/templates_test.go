package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"blonde"}, splitTags("blonde"))
	assert.Equal(t, []string{"blonde", "wavy"}, splitTags("blonde,wavy"))
	assert.Equal(t, []string{"blonde", "wavy"}, splitTags(" blonde , wavy "))
	assert.Nil(t, splitTags(",,  ,"))
}
