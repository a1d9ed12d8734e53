package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_Deterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	assert.Equal(t, ContentHash(text), ContentHash(text))
	assert.Len(t, ContentHash(text), 16)
}

func TestContentHash_DetectsCommonEdits(t *testing.T) {
	base := strings.Repeat("middle filler text ", 100)

	tests := []struct {
		name    string
		changed string
	}{
		{"prepended text", "new intro " + base},
		{"appended text", base + " new outro"},
		{"changed head", "X" + base[1:]},
		{"changed tail", base[:len(base)-1] + "X"},
		{"changed length", base + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, ContentHash(base), ContentHash(tt.changed))
		})
	}
}

func TestContentHash_MiddleEditSameLengthNotDetected(t *testing.T) {
	// Known limitation: the hash covers length plus the first and last 200
	// characters. A same-length edit confined to the middle is invisible.
	base := strings.Repeat("a", 200) + "ORIGINAL" + strings.Repeat("b", 200)
	edited := strings.Repeat("a", 200) + "REPLACED" + strings.Repeat("b", 200)

	assert.Equal(t, ContentHash(base), ContentHash(edited))
}

func TestContentHash_ShortText(t *testing.T) {
	assert.Equal(t, ContentHash("hi"), ContentHash("hi"))
	assert.NotEqual(t, ContentHash("hi"), ContentHash("ho"))
	assert.Len(t, ContentHash(""), 16)
}
