package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobMatchStar(t *testing.T) {
	assert.True(t, globMatch("foo*", "foobar"))
	assert.True(t, globMatch("*bar", "foobar"))
	assert.False(t, globMatch("foo*", "barfoo"))
}

func TestGlobMatchQuestionMark(t *testing.T) {
	assert.True(t, globMatch("h?llo", "hello"))
	assert.False(t, globMatch("h?llo", "heello"))
}

func TestGlobMatchExactLiteral(t *testing.T) {
	assert.True(t, globMatch("exact", "exact"))
	assert.False(t, globMatch("exact", "exacter"))
}

func TestGlobMatchEscapesRegexMetacharacters(t *testing.T) {
	assert.True(t, globMatch("a.b", "a.b"))
	assert.False(t, globMatch("a.b", "aXb"))
}
