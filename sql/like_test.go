package sql

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeToRegex(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("^[a][b][c]$", LikeToRegex("abc"))
	assert.Equal("^[a].*$", LikeToRegex("a%"))
	assert.Equal("^.[b]$", LikeToRegex("_b"))
	assert.Equal("^[%]$", LikeToRegex(`\%`))
	assert.Equal("^\\[\\]\\/$", LikeToRegex("[]/"))

	match := func(pattern, input string) bool {
		return regexp.MustCompile(LikeToRegex(pattern)).MatchString(input)
	}

	assert.True(match("%BRASS", "LARGE POLISHED BRASS"))
	assert.False(match("%BRASS", "BRASS PLATED"))
	assert.True(match("forest%", "forest green"))
	assert.True(match("a_c", "abc"))
	assert.False(match("a_c", "abbc"))
	assert.True(match("50\\%", "50%"))
	assert.False(match("50\\%", "500"))
	assert.True(match("a.b", "a.b"))
	assert.False(match("a.b", "axb"))
	assert.True(match("%special%requests%", "the special deposit requests"))
}
