package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
	"github.com/ironsheep/beam-profile-mcp/internal/config"
	"github.com/ironsheep/beam-profile-mcp/internal/imaging"
)

func TestRunFit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beam.png")
	truth := beam.GaussianParams{Amplitude: 20000, CenterX: 30, CenterY: 25, SigmaP: 5, SigmaS: 3, Phi: 0.3, Offset: 500}
	_, err := imaging.SynthesizeFrame(path, 50, 60, truth)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runFit(config.Default(), []string{"-method", "iso", path}, &out))

	var p beam.Profile
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	assert.Equal(t, beam.MethodISO, p.Method)
	assert.InDelta(t, truth.CenterX, p.MeanX, 0.2)
	assert.InDelta(t, truth.CenterY, p.MeanY, 0.2)
	assert.True(t, strings.HasPrefix(out.String(), "{\n  "), "output should be indented JSON")
}

func TestRunFit_Errors(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer

	assert.Error(t, runFit(cfg, nil, &out))
	assert.Error(t, runFit(cfg, []string{"a.png", "b.png"}, &out))
	assert.Error(t, runFit(cfg, []string{"-method", "tophat", "a.png"}, &out))
	assert.Error(t, runFit(cfg, []string{"-bogus", "a.png"}, &out))
	assert.Error(t, runFit(cfg, []string{"/nonexistent/beam.png"}, &out))
	assert.Empty(t, out.String())
}

func TestPrintHelp(t *testing.T) {
	var out bytes.Buffer
	printHelp(&out)
	for _, v := range []string{config.EnvLogLevel, config.EnvLogFormat, config.EnvDefaultMethod, config.EnvDefaultDecimation, config.EnvISOMaxIterations} {
		assert.Contains(t, out.String(), v)
	}
}

func TestFitFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Decimation = 3
	fs, method, decimation := fitFlags(cfg)

	assert.Equal(t, cfg.Method.String(), *method)
	assert.Equal(t, 3, *decimation)

	f := fs.Lookup("decimation")
	require.NotNil(t, f)
	assert.Equal(t, "keep every nth row/column before fitting", f.Usage)
	assert.NotContains(t, f.Usage, "averag")
}
