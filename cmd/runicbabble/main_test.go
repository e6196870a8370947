// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/runicbabble/runicbabble/internal/config"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

// execute runs the root command with args against an empty config dir.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configDir = ""
	configPattern = config.DefaultPattern

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config-dir", t.TempDir()}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

func writeFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o600))
	return path
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"run", "render"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_LongDescription(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "runicbabble", cmd.Use)
	assert.Contains(t, cmd.Long, "Madouji")
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_ConfigDirMustExist(t *testing.T) {
	configDir = ""
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config-dir", filepath.Join(t.TempDir(), "missing"), "render", "--emotes", "a"})

	err := cmd.Execute()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}

func TestRunCommand_Flags(t *testing.T) {
	cmd := NewRunCmd()

	for _, name := range []string{"bot-token", "sync-slash", "guild-id", "db-location", "font-path", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "run missing --%s", name)
	}
}

func TestRunCommand_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("RUNICBABBLE_DISCORD__BOT_TOKEN", "")

	_, err := execute(t, "", "run", "--log-format", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingKey)
}

func TestRenderCommand_Emotes(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "composed vowels",
			args: []string{"render", "--emotes", "a'e'"},
			want: ":mdj_a_::mdj_e_:\n",
		},
		{
			name: "arguments are joined by spaces",
			args: []string{"render", "--emotes", "ta", "ka"},
			want: ":mdj_t::mdj_a::mdj_space::mdj_k::mdj_a:\n",
		},
		{
			name:  "stdin",
			stdin: "wu'\n",
			args:  []string{"render", "--emotes"},
			want:  ":mdj_w::mdj_u_:\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRenderCommand_ImageToFile(t *testing.T) {
	font := writeFont(t)
	out := filepath.Join(t.TempDir(), "out.png")

	stdout, err := execute(t, "", "render", "--font-path", font, "--line-width", "4", "--wrap", "force", "-o", out, "abcdefgh")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dy(), 1)
}

func TestRenderCommand_ImageToStdout(t *testing.T) {
	font := writeFont(t)

	stdout, err := execute(t, "", "render", "--font-path", font, "hello")
	require.NoError(t, err)

	_, err = png.Decode(strings.NewReader(stdout))
	require.NoError(t, err)
}

func TestRenderCommand_MissingFont(t *testing.T) {
	_, err := execute(t, "", "render", "--font-path", filepath.Join(t.TempDir(), "none.ttf"), "hello")
	require.Error(t, err)
}
