package splotch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjepangolemac/splotch/imaging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "splotch.yaml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o644))
	return file
}

func TestLoadConfig(t *testing.T) {
	file := writeConfig(t, `
title: Splotch
author: Stjepan Golemac
url: https://splotch.example.com/
keywords: [go, blog]
post_cache_ttl: 1m
workers: 2
`)
	t.Setenv("SPLOTCH_DESCRIPTION", "From the environment")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "Splotch", cfg.Title)
	assert.Equal(t, "Stjepan Golemac", cfg.Author)
	assert.Equal(t, "https://splotch.example.com", cfg.URL)
	assert.Equal(t, []string{"go", "blog"}, cfg.Keywords)
	assert.Equal(t, time.Minute, cfg.PostCacheTTL)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "From the environment", cfg.Description)

	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, "content/blog", cfg.ContentDir)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, 365, cfg.AnalyticsRetentionDays)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigShortSecret(t *testing.T) {
	file := writeConfig(t, "admin_password: hunter2\nsession_secret: short\n")
	_, err := LoadConfig(file)
	assert.ErrorContains(t, err, "session_secret")
}

func TestSiteConfigDefaults(t *testing.T) {
	var c SiteConfig
	c.setDefaults()
	assert.Equal(t, "Splotch", c.Title)
	assert.Equal(t, "http://localhost:3000", c.URL)
	assert.Equal(t, ":3000", c.Addr)
	assert.Equal(t, 5*time.Minute, c.PostCacheTTL)
	assert.Equal(t, 4, c.Workers)
	assert.NoError(t, c.validate())

	s := SiteConfig{Twitter: "@splotch"}.site(imaging.Variant{})
	assert.Equal(t, "splotch", s.Twitter)
}
