package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinfer/fcs-plugin/testutil"
	"gopkg.in/yaml.v3"
)

func writeSample(t *testing.T, dir, name string, events int) string {
	t.Helper()
	values := make([]float32, 2*events)
	for i := range values {
		values[i] = float32(i)
	}
	raw := testutil.BuildFCS(testutil.FileSpec{
		Keywords: append(testutil.MinimalKeywords(2, events), "$CYT", "Aurora"),
		Data:     testutil.Float32s(binary.LittleEndian, values...),
	})
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSample(t, dir, "a.fcs", 3),
		writeSample(t, dir, "b.fcs", 5),
		writeSample(t, dir, "c.fcs", 1),
	}

	stdout, _, err := runCLI(t, append([]string{"--events", "2", "--digest", "-j", "2"}, paths...)...)
	require.NoError(t, err)

	var results []result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path, "results keep input order")
		require.NotNil(t, r.Summary)
		assert.Empty(t, r.Error)
		assert.Len(t, r.Summary.Digest, 64)
	}
	assert.Equal(t, uint64(5), results[1].Summary.TotalEvents)
	assert.Len(t, results[1].Summary.Events, 2)
	assert.Len(t, results[2].Summary.Events, 1)
}

func TestRun_Formats(t *testing.T) {
	path := writeSample(t, t.TempDir(), "a.fcs", 2)

	stdout, _, err := runCLI(t, "--format", "yaml", path)
	require.NoError(t, err)
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, path, fromYAML[0]["path"])

	stdout, _, err = runCLI(t, "-f", "cbor", path)
	require.NoError(t, err)
	var fromCBOR []result
	require.NoError(t, cbor.Unmarshal([]byte(stdout), &fromCBOR))
	require.Len(t, fromCBOR, 1)
	assert.Equal(t, uint64(2), fromCBOR[0].Summary.TotalEvents)
}

func TestRun_FlagCase(t *testing.T) {
	path := writeSample(t, t.TempDir(), "a.fcs", 2)

	stdout, stderr, err := runCLI(t, "--format", " JSON ", "--log-level", "DEBUG", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Inspected file")

	var results []result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.Equal(t, uint64(2), results[0].Summary.TotalEvents)
}

func TestRun_Checks(t *testing.T) {
	dir := t.TempDir()
	small := writeSample(t, dir, "small.fcs", 1)
	large := writeSample(t, dir, "large.fcs", 20)

	stdout, _, err := runCLI(t, "--check", "total_events >= 10", "--check", `keywords["$CYT"] == "Aurora"`, small, large)
	assert.ErrorIs(t, err, errFailed)

	var results []result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	assert.Equal(t, []string{"total_events >= 10"}, results[0].Failed)
	assert.Empty(t, results[1].Failed)
	assert.NotNil(t, results[0].Summary, "a failing check still reports the summary")
}

func TestRun_ParseFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeSample(t, dir, "good.fcs", 2)
	bad := filepath.Join(dir, "bad.fcs")
	require.NoError(t, os.WriteFile(bad, []byte("FCS3.1"), 0o644))

	stdout, stderr, err := runCLI(t, good, bad)
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, stderr, "Failed to parse file")

	var results []result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Nil(t, results[1].Summary)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "a.fcs", 4)
	cfgPath := filepath.Join(dir, "fcsinfo.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
format = "yaml"
events = 1
checks = ["parameters_count == 2"]
`), 0o644))

	stdout, _, err := runCLI(t, "--config", cfgPath, path)
	require.NoError(t, err)
	var fromYAML []result
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Len(t, fromYAML[0].Summary.Events, 1)

	// Flags override the file.
	stdout, _, err = runCLI(t, "--config", cfgPath, "--format", "json", "--events", "3", path)
	require.NoError(t, err)
	var fromJSON []result
	require.NoError(t, json.Unmarshal([]byte(stdout), &fromJSON))
	assert.Len(t, fromJSON[0].Summary.Events, 3)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no files", nil, "no input files"},
		{"bad format", []string{"--format", "xml", "a.fcs"}, "invalid format"},
		{"bad concurrency", []string{"-j", "0", "a.fcs"}, "concurrency"},
		{"bad check", []string{"--check", "total_events >", "a.fcs"}, "total_events >"},
		{"unknown flag", []string{"--nope", "a.fcs"}, "nope"},
		{"missing config", []string{"--config", "/does/not/exist.yaml", "a.fcs"}, "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, errFailed)
			assert.Contains(t, err.Error(), tt.want, fmt.Sprint(tt.args))
		})
	}

	_, stderr, err := runCLI(t, "--help")
	assert.NoError(t, err)
	assert.Contains(t, stderr, "Usage:")
}
