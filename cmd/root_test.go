package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"terms", "match", "profile", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "compliance-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestTermsCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "output"} {
		assert.NotNil(t, termsCmd.Flags().Lookup(name), "terms should have --%s flag", name)
	}
}

func TestMatchCommand_Flags(t *testing.T) {
	require.NotNil(t, matchCmd.Flags().Lookup("input"), "match command should have --input flag")

	flag := matchCmd.Flags().Lookup("continue-on-error")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)

	flag = matchCmd.Flags().Lookup("strategy")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestProfileCommand_Flags(t *testing.T) {
	flag := profileCmd.Flags().Lookup("lookback")
	require.NotNil(t, flag, "profile command should have --lookback flag")
	assert.Equal(t, "0", flag.DefValue)

	assert.NotNil(t, profileCmd.Flags().Lookup("output-dir"))
}
