package namegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := Generate()
		assert.NotEmpty(t, name)
		parts := strings.Split(name, "-")
		assert.Len(t, parts, 3)
		for _, p := range parts {
			assert.NotEmpty(t, p)
		}
	}
}
