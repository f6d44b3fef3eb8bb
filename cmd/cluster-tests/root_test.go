package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newListCmd()
	cmd.SetOut(&buf)

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "deployment-ready")
	assert.Contains(t, out, "service-nodeport-reachable")
	assert.Contains(t, out, "manual,slow")
}

func TestRunCommand_RejectsBadSelection(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--select", "and and"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing selection")
}

func TestRunCommand_RejectsMissingConfigFile(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", "/nonexistent/config.yaml"})

	require.Error(t, cmd.Execute())
}
