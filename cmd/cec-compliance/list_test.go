package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestListText(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Core [core]", lines[0])
	assert.Contains(t, out, "    Give OSD Name (give-osd-name)\n")
	assert.Contains(t, out, "Post-test checks [core]")
}

func TestListJSONFiltered(t *testing.T) {
	out, err := execute(t, "list", "--tags", "deck-control", "--format", "json")
	require.NoError(t, err)

	var areas []listedArea
	require.NoError(t, json.Unmarshal([]byte(out), &areas))
	require.NotEmpty(t, areas)
	for _, a := range areas {
		for _, tag := range a.Tags {
			assert.Contains(t, []string{"core", "deck-control"}, tag, a.Area)
		}
	}
	var names []string
	for _, a := range areas {
		names = append(names, a.Area)
	}
	assert.Contains(t, names, "Core")
	assert.NotContains(t, names, "Tuner Control feature")
}

func TestListShowTags(t *testing.T) {
	out, err := execute(t, "list", "--show-tags")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "all\n"))
	assert.Contains(t, out, "\nstandby-resume\n")
}

func TestListRejectsBadInput(t *testing.T) {
	_, err := execute(t, "list", "--tags", "teleport")
	assert.Equal(t, ExitCommandError, exitCode(err))

	_, err = execute(t, "list", "--format", "xml")
	assert.Equal(t, ExitCommandError, exitCode(err))

	_, err = execute(t, "--log-format", "yaml", "list")
	assert.Equal(t, ExitCommandError, exitCode(err))
}
