package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/shoal/internal/xmlquery"
)

type env struct {
	config string
	db     string
	music  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		config: filepath.Join(dir, "config.toml"),
		db:     filepath.Join(dir, "collection.db"),
		music:  filepath.Join(dir, "music"),
	}
	require.NoError(t, os.MkdirAll(e.music, 0o755))
	e.writeConfig(t)
	return e
}

// writeConfig writes the configuration, listing databases as collections
// queried alongside the local one.
func (e *env) writeConfig(t *testing.T, databases ...string) {
	t.Helper()
	quoted := make([]string, len(databases))
	for i, db := range databases {
		quoted[i] = fmt.Sprintf("%q", db)
	}
	content := fmt.Sprintf(`[database]
path = %q

[collection]
mount_points = [%q]
databases = [%s]

[log]
level = "error"
console = false
`, e.db, e.music, strings.Join(quoted, ", "))
	require.NoError(t, os.WriteFile(e.config, []byte(content), 0o600))
}

// run executes the command line and returns its standard output.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "", "add", filepath.Join(e.music, "Enigma", "03.flac"),
		"--title", "Sadeness", "--artist", "Enigma", "--album", "MCMXC a.D.",
		"--album-artist", "Enigma", "--year", "1990", "--track", "3", "--length", "4m16s",
		"--filesize", "10485760")
	require.NoError(t, err)
	_, err = e.run(t, "", "add", filepath.Join(e.music, "Era", "01.flac"),
		"--title", "Ameno", "--artist", "Era", "--album", "Era", "--album-artist", "Era")
	require.NoError(t, err)
}

func TestAdd(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "add", filepath.Join(e.music, "a.flac"), "--title", "Ameno")
	require.NoError(t, err)
	assert.Equal(t, "Added track 1: Ameno\n", out)

	_, err = e.run(t, "", "add", filepath.Join(e.music, "b.flac"))
	assert.ErrorContains(t, err, "Failed to add track")
	assert.ErrorContains(t, err, "--title is required")
}

func TestQuery_Tracks(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	out, err := e.run(t, `<query version="1.0">
  <filters><include field="artist" value="Enigma"/></filters>
  <returnValues><tracks/></returnValues>
</query>`, "query", "--columns", "tracknr,title,year,length,filesize")
	require.NoError(t, err)

	assert.Equal(t, "tracknr  title     year  length  filesize\n"+
		"───────  ────────  ────  ──────  ────────\n"+
		"3        Sadeness  1990  4:16    10 MB\n"+
		"\n1 result\n", out)
}

func TestQuery_FromFile(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	file := filepath.Join(t.TempDir(), "albums.xml")
	require.NoError(t, os.WriteFile(file, []byte(`<query version="1.0">
  <returnValues><albums/></returnValues>
  <order field="album"/>
</query>`), 0o600))

	out, err := e.run(t, "", "query", file)
	require.NoError(t, err)
	assert.Equal(t, "album       albumartist\n"+
		"──────────  ───────────\n"+
		"Era         Era\n"+
		"MCMXC a.D.  Enigma\n"+
		"\n2 results\n", out)
}

func TestQuery_SeveralCollections(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	other := newEnv(t)
	_, err := other.run(t, "", "add", filepath.Join(other.music, "04.flac"),
		"--title", "Mea Culpa", "--artist", "Enigma", "--album", "MCMXC a.D.", "--album-artist", "Enigma")
	require.NoError(t, err)
	_, err = other.run(t, "", "add", filepath.Join(other.music, "05.flac"),
		"--title", "Orinoco Flow", "--artist", "Enya", "--album", "Pure Moods")
	require.NoError(t, err)
	e.writeConfig(t, other.db)

	out, err := e.run(t, `<query version="1.0">
  <returnValues><albums/></returnValues>
  <order field="album"/>
</query>`, "query")
	require.NoError(t, err)
	assert.Equal(t, "album       albumartist\n"+
		"──────────  ───────────\n"+
		"Era         Era\n"+
		"MCMXC a.D.  Enigma\n"+
		"Pure Moods\n"+
		"\n3 results\n", out)

	out, err = e.run(t, `<query version="1.0">
  <returnValues><tracks/></returnValues>
  <order field="title" value="descending"/>
  <limit value="2"/>
</query>`, "query", "--columns", "title")
	require.NoError(t, err)
	assert.Equal(t, "title\n"+
		"────────────\n"+
		"Sadeness\n"+
		"Orinoco Flow\n"+
		"\n2 results\n", out)
}

func TestQuery_MissingCollectionDatabase(t *testing.T) {
	e := newEnv(t)
	missing := filepath.Join(t.TempDir(), "gone.db")
	e.writeConfig(t, missing)

	_, err := e.run(t, `<query version="1.0"><returnValues><genres/></returnValues></query>`, "query")
	assert.ErrorContains(t, err, "Failed to open collection '"+missing+"'")
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestQuery_NoResults(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, `<query version="1.0"><returnValues><genres/></returnValues></query>`, "query")
	require.NoError(t, err)
	assert.Equal(t, "No results.\n", out)
}

func TestQuery_Invalid(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, `<query version="2.0"/>`, "query", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, xmlquery.ErrInvalidQuery)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to run query: "), err.Error())

	_, err = e.run(t, "", "query", filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorContains(t, err, "Failed to read query")
}

func TestMounts(t *testing.T) {
	e := newEnv(t)
	extra := t.TempDir()

	out, err := e.run(t, "", "mounts", "add", extra)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered "+extra+" as device")

	out, err = e.run(t, "", "mounts")
	require.NoError(t, err)
	assert.Contains(t, out, e.music)
	assert.Contains(t, out, extra)
	assert.Equal(t, 2, strings.Count(out, "mounted"))
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := e.run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "shoal 1.2.3\n", out)
}

func TestConfigError(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(config, []byte("[database\n"), 0o600))

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", config, "version"})
	err := root.Execute()
	assert.ErrorContains(t, err, "Failed to load configuration")
}

func TestResultColumns(t *testing.T) {
	got := resultColumns([]map[string]string{
		{"url": "/music/a.flac", "title": "Ameno", "uniqueid": "x", "collection": "c"},
		{"title": "Sadeness", "artist": "Enigma", "count(title)": "2"},
	})
	assert.Equal(t, []string{"title", "artist", "url", "count(title)"}, got)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		col, value, want string
	}{
		{"length", "256000", "4:16"},
		{"filesize", "1536", "1.5 KB"},
		{"lastplayed", "0", "0"},
		{"title", "Sadeness", "Sadeness"},
		{"length", "", ""},
		{"length", "n/a", "n/a"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.col, tt.value); got != tt.want {
			t.Errorf("formatValue(%q, %q) = %q, want %q", tt.col, tt.value, got, tt.want)
		}
	}
}
