package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.com ", "@bank.example", ""}, zaptest.NewLogger(t))

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"Alice <alice@EXAMPLE.COM>", true},
		{"noreply@mail.example.com", true},
		{"support@bank.example", true},
		{"scammer@example.com.evil.io", false},
		{"scammer@notexample.com", false},
		{"not-an-address", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsWhitelisted(tt.from), tt.from)
	}
}

func TestEmptyChecker(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.IsWhitelisted("alice@example.com"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("a@Example.com"))
	assert.Equal(t, "example.com", Domain("Bob <b@example.com>"))
	assert.Equal(t, "", Domain("a@"))
	assert.Equal(t, "", Domain("@example.com"))
}
