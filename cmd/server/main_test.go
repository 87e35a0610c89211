package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/tbrisk/internal/classifier"
	"github.com/Skufu/tbrisk/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "5000",
		LogLevel:        "info",
		ModelPath:       "../../model/tb_risk_model.json",
		HospitalsSource: config.SourceCSV,
		HospitalsPath:   "../../data/hospitals.csv",
		MaxBodyBytes:    1 << 20,
	}
}

func TestLoadRuntime(t *testing.T) {
	rt, err := loadRuntime(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "tb-risk-logreg-v3", rt.model.Name)
	assert.Equal(t, []int{0, 1, 2}, rt.model.Classes())
	assert.Equal(t, 9, rt.directory.Len())

	got, err := rt.classifier.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, classifier.Low, got.RiskLevel)
}

func TestLoadRuntimeFailsOnMissingModel(t *testing.T) {
	cfg := testConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := loadRuntime(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadRuntimeFailsOnBrokenDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,city\nA,B\n"), 0o600))

	cfg := testConfig()
	cfg.HospitalsPath = path

	_, err := loadRuntime(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadRuntimeFailsOnUnmappedModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "bad-labels",
		"classes": [7, 8],
		"coefficients": [[0,0,0,0,0,0,0,0,0,0,0,0],[0,0,0,0,0,0,0,0,0,0,0,0]],
		"intercepts": [1, 0]
	}`), 0o600))

	cfg := testConfig()
	cfg.ModelPath = path

	_, err := loadRuntime(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, classifier.ErrInternal)
}

func TestLoadDirectoryUnknownSource(t *testing.T) {
	cfg := testConfig()
	cfg.HospitalsSource = "mongo"
	_, err := loadDirectory(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "debug"
	assert.Equal(t, zerolog.DebugLevel, newLogger(cfg).GetLevel())

	cfg.LogLevel = ""
	assert.Equal(t, zerolog.InfoLevel, newLogger(cfg).GetLevel())
}

func TestWaitForShutdownReturnsServerError(t *testing.T) {
	errCh := make(chan error, 1)
	errCh <- http.ErrHandlerTimeout
	close(errCh)

	done := make(chan error, 1)
	go func() { done <- waitForShutdown(&http.Server{}, errCh, zerolog.Nop()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrHandlerTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForShutdown did not return")
	}
}
