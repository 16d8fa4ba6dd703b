package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeInsertsHint(t *testing.T) {
	got := Optimize("https://cdn.example.com/upload/chimeralens/user_uploads/abc.png")
	assert.Equal(t, "https://cdn.example.com/upload/f_auto,q_auto/chimeralens/user_uploads/abc.png", got)
}

func TestOptimizeIdempotent(t *testing.T) {
	once := Optimize("https://cdn.example.com/upload/chimeralens/user_uploads/abc.png")
	assert.Equal(t, once, Optimize(once))
}

func TestOptimizePassesThroughForeignURLs(t *testing.T) {
	for _, u := range []string{
		"",
		"not a url",
		"https://elsewhere.example.com/images/abc.png",
		"https://cdn.example.com/uploads/abc.png", // no marker, close miss
	} {
		assert.Equal(t, u, Optimize(u), "input %q", u)
	}
}

func TestOptimizeUsesFirstMarker(t *testing.T) {
	got := Optimize("https://cdn.example.com/upload/a/upload/b.png")
	assert.Equal(t, "https://cdn.example.com/upload/f_auto,q_auto/a/upload/b.png", got)
}

func TestRemoteObjectName(t *testing.T) {
	assert.Equal(t, "result", remoteObjectName("https://provider.example.com/out/result.png"))
	assert.Equal(t, "result", remoteObjectName("https://provider.example.com/out/result.png?expires=123"))

	// URLs without a usable path segment get a generated name.
	assert.NotEmpty(t, remoteObjectName("https://provider.example.com/"))
	assert.NotEmpty(t, remoteObjectName("://bad"))
}
