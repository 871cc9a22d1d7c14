package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/forms"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/publish"
	"github.com/conneroisu/pagecraft/internal/version"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

const samplePage = `id: spring-launch
title: Spring Launch
theme:
  primaryColor: "#2563eb"
  fontFamily: inter
sections:
  - id: intro
    type: hero
    order: 0
    data:
      headline: Meet Spring
      subheadline: The fastest way to launch.
  - id: details
    type: content
    order: 1
    data:
      title: Why Spring?
      body: It is fast.
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestCompilePublishesPage(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "dist")
	viper.Set("output.dir", out)
	viper.Set("output.owner", "acme")
	viper.Set("output.base_url", "https://pages.example.com")

	pagePath := writeFile(t, dir, "page.yaml", samplePage)

	var stdout bytes.Buffer
	compileCmd.SetOut(&stdout)
	compileCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { compileCmd.SetOut(nil); compileCmd.SetErr(nil) })

	require.NoError(t, runCompile(compileCmd, []string{pagePath}))

	assert.Contains(t, stdout.String(), "Published spring-launch")
	assert.Contains(t, stdout.String(), "https://pages.example.com/acme/spring-launch/")

	doc, err := os.ReadFile(filepath.Join(out, "acme", "spring-launch", publish.IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Meet Spring")

	m, err := publish.ReadManifest(filepath.Join(out, "acme", "spring-launch"))
	require.NoError(t, err)
	assert.Equal(t, "spring-launch", m.PageID)
	assert.Equal(t, len(doc), m.Size)
}

func TestCompileRejectsUnpublishablePage(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	viper.Set("output.dir", filepath.Join(dir, "dist"))

	pagePath := writeFile(t, dir, "empty.yaml", "id: empty\ntitle: Nothing\n")

	compileCmd.SetOut(&bytes.Buffer{})
	compileCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { compileCmd.SetOut(nil); compileCmd.SetErr(nil) })

	err := runCompile(compileCmd, []string{pagePath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page has no sections")

	_, statErr := os.Stat(filepath.Join(dir, "dist", "local", "empty"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestValidateReportFormats(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fragment.html", "<p>hello</p>")

	prevFormat, prevStrict := validateFormat, validateStrict
	t.Cleanup(func() { validateFormat, validateStrict = prevFormat, prevStrict })

	t.Run("json", func(t *testing.T) {
		validateFormat = formatJSON
		var buf bytes.Buffer
		validateCmd.SetOut(&buf)
		t.Cleanup(func() { validateCmd.SetOut(nil) })

		require.NoError(t, runValidate(validateCmd, []string{path}))

		var report ValidationReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, path, report.File)
		assert.Equal(t, len("<p>hello</p>"), report.Size)
		assert.False(t, report.Valid)
		assert.NotEmpty(t, report.Warnings)
		assert.Len(t, report.Checksum, 8)
	})

	t.Run("yaml", func(t *testing.T) {
		validateFormat = formatYAML
		var buf bytes.Buffer
		validateCmd.SetOut(&buf)
		t.Cleanup(func() { validateCmd.SetOut(nil) })

		require.NoError(t, runValidate(validateCmd, []string{path}))

		var report ValidationReport
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, path, report.File)
		assert.False(t, report.Valid)
	})

	t.Run("table", func(t *testing.T) {
		validateFormat = formatTable
		var buf bytes.Buffer
		validateCmd.SetOut(&buf)
		t.Cleanup(func() { validateCmd.SetOut(nil) })

		require.NoError(t, runValidate(validateCmd, []string{path}))
		assert.Contains(t, buf.String(), "FILE")
		assert.Contains(t, buf.String(), "warning(s)")
	})

	t.Run("strict", func(t *testing.T) {
		validateFormat, validateStrict = formatTable, true
		validateCmd.SetOut(&bytes.Buffer{})
		t.Cleanup(func() { validateCmd.SetOut(nil) })

		err := runValidate(validateCmd, []string{path})
		assert.ErrorContains(t, err, "validation warning(s)")
	})
}

func TestValidateRejectsNonHTML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "page.yaml", samplePage)
	err := runValidate(validateCmd, []string{path})
	assert.ErrorContains(t, err, "document must be an .html file")
}

func TestFormServiceValue(t *testing.T) {
	v := &formServiceValue{service: forms.ServiceCustom}
	assert.Equal(t, "service", v.Type())

	require.NoError(t, v.Set(string(forms.ServiceHosted)))
	assert.Equal(t, string(forms.ServiceHosted), v.String())

	assert.Error(t, v.Set("carrier-pigeon"))
	assert.Equal(t, string(forms.ServiceHosted), v.String())
}

func TestOutputFormatValue(t *testing.T) {
	f := formatTable
	require.NoError(t, f.Set("JSON"))
	assert.Equal(t, formatJSON, f)

	err := f.Set("xml")
	assert.ErrorContains(t, err, "unsupported format")
	assert.Equal(t, formatJSON, f)
}

func TestVersionOutput(t *testing.T) {
	prevFormat, prevShort := versionFormat, versionShort
	t.Cleanup(func() { versionFormat, versionShort = prevFormat, prevShort })

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionFormat = formatJSON
	require.NoError(t, runVersion(versionCmd, nil))
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.GetVersion(), info.Version)
	assert.NotEmpty(t, info.GoVersion)

	buf.Reset()
	versionFormat, versionShort = formatTable, true
	require.NoError(t, runVersion(versionCmd, nil))
	assert.Equal(t, version.GetShortVersion(), strings.TrimSpace(buf.String()))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "watch", "preview", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestBindFlagsUnknownFlag(t *testing.T) {
	resetViper(t)
	err := bindFlags(versionCmd, map[string]string{"output.dir": "out"})
	assert.ErrorContains(t, err, "flag --out is not defined")
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	resetViper(t)
	prevFile, prevErr := cfgFile, configReadErr
	t.Cleanup(func() { cfgFile, configReadErr = prevFile, prevErr })

	cfgFile = filepath.Join(t.TempDir(), "missing.yml")
	configReadErr = nil
	initConfig()

	_, _, err := loadConfig(versionCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
	assert.True(t, pcerrors.HasErrorCode(err, pcerrors.ErrCodeConfigInvalid))
}

func TestConfigFileIsRead(t *testing.T) {
	resetViper(t)
	prevFile, prevErr := cfgFile, configReadErr
	t.Cleanup(func() { cfgFile, configReadErr = prevFile, prevErr })

	dir := t.TempDir()
	cfgFile = writeFile(t, dir, "pagecraft.yml", "output:\n  owner: team-a\npreview:\n  port: 9001\n")
	configReadErr = nil
	initConfig()

	cfg, _, err := loadConfig(versionCmd)
	require.NoError(t, err)
	assert.Equal(t, "team-a", cfg.Output.Owner)
	assert.Equal(t, 9001, cfg.Preview.Port)
}

func TestPageFilesIn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))

	writeFile(t, dir, "home.yaml", samplePage)
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, ".home.yaml.swp", "x")
	writeFile(t, filepath.Join(dir, "blog"), "launch.json", "{}")
	writeFile(t, filepath.Join(dir, ".git"), "config.yml", "x")

	files, err := pageFilesIn(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "blog", "launch.json"),
		filepath.Join(dir, "home.yaml"),
	}, files)
}

func TestWatchPageDirReportsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	var mu sync.Mutex
	var changed []string
	w := &workflow{logger: logging.NewNopLogger()}
	fw, err := watchPageDir(dir, 20*time.Millisecond, func(_ context.Context, path string) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, path)
	}, w)
	require.NoError(t, err)
	defer fw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	want := writeFile(t, sub, "launch.yaml", samplePage)
	writeFile(t, sub, "ignored.txt", "x")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, path := range changed {
			if path == want {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, path := range changed {
		assert.Equal(t, want, path)
	}
}
