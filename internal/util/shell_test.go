package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":                  "''",
		"shop-staging":      "'shop-staging'",
		"/home/shop/www x":  "'/home/shop/www x'",
		"it's":              `'it'\''s'`,
		"$(rm -rf /)":       "'$(rm -rf /)'",
		"initial_data.json": "'initial_data.json'",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShellQuote(in), in)
	}
}

func TestShellQuotePreserveTilde(t *testing.T) {
	tests := map[string]string{
		"~":                      "~",
		"~/www/staging":          "~/'www/staging'",
		"~/www/it's":             `~/'www/it'\''s'`,
		"/home/shop/www/staging": "'/home/shop/www/staging'",
		"~shop/www":              "'~shop/www'",
		"/srv/~/odd":             "'/srv/~/odd'",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShellQuotePreserveTilde(in), in)
	}
}

func TestJoinCommands(t *testing.T) {
	assert.Equal(t, "", JoinCommands())
	assert.Equal(t, "git pull", JoinCommands("", " git pull ", "  "))
	assert.Equal(t,
		"cd '/home/shop/www/staging/shop' && git checkout master && git pull",
		JoinCommands("cd '/home/shop/www/staging/shop'", "git checkout master", "git pull"))
}
