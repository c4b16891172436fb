package match

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordPattern(t *testing.T) {
	got, err := WordPattern([]string{"Acme Corp", " Acme ", ""}, `\b`)
	require.NoError(t, err)
	assert.Equal(t, `(\bACME CORP\b|\bACME\b)`, got)

	re := regexp.MustCompile(got)
	assert.True(t, re.MatchString("ACME CORP LLC"))
	assert.True(t, re.MatchString("THE ACME COMPANY"))
	assert.False(t, re.MatchString("ACMECORP"))
}

func TestWordPattern_PostgresBoundary(t *testing.T) {
	got, err := WordPattern([]string{"Acme"}, `\y`)
	require.NoError(t, err)
	assert.Equal(t, `(\yACME\y)`, got)
}

func TestWordPattern_Empty(t *testing.T) {
	got, err := WordPattern(nil, `\b`)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = WordPattern([]string{" ", ""}, `\b`)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestWordPattern_EscapesMetacharacters(t *testing.T) {
	got, err := WordPattern([]string{"A+B (USA)", "O'Brien's Waste"}, `\b`)
	require.NoError(t, err)
	assert.Equal(t, `(\bA\+B \(USA\)|\bO'BRIEN'S WASTE\b)`, got)

	re := regexp.MustCompile(got)
	assert.True(t, re.MatchString("A+B (USA) INC"))
	assert.False(t, re.MatchString("AAB (USA)"))
	assert.True(t, re.MatchString("O'BRIEN'S WASTE SERVICES"))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, `%ACME\_50\%%`, ContainsPattern(" Acme_50% "))
	assert.Equal(t, `%A\\B%`, ContainsPattern(`a\b`))
}
