package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", sanitizeEmail("  User@Example.COM "))
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"a.b+c@sub.example.lk",
	}
	for _, e := range valid {
		assert.True(t, validEmail(e), e)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"dots..in@example.com",
		"spaces in@example.com",
		strings.Repeat("a", 250) + "@x.io", // 超长
	}
	for _, e := range invalid {
		assert.False(t, validEmail(e), e)
	}
}

func TestValidPassword(t *testing.T) {
	assert.True(t, validPassword("Abcdefg1"))
	assert.True(t, validPassword("LongerPassw0rd"))

	invalid := map[string]string{
		"short":    "Ab1",
		"no upper": "abcdefg1",
		"no lower": "ABCDEFG1",
		"no digit": "Abcdefgh",
	}
	for name, p := range invalid {
		assert.False(t, validPassword(p), name)
	}
}
