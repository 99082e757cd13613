package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRecordAndFresh(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "page.html")
	hdr := filepath.Join(dir, "models.h")
	out := tpl + ".cpp"
	write(t, tpl, "<!-- std::string page() -->")
	write(t, hdr, "struct A { int x; };")
	write(t, out, "// code")

	s := openStore(t)
	fresh, err := s.Fresh(tpl, "k")
	require.NoError(t, err)
	assert.False(t, fresh, "unknown template is never fresh")

	require.NoError(t, s.Record(tpl, out, "k", []string{tpl, hdr}))
	fresh, err = s.Fresh(tpl, "k")
	require.NoError(t, err)
	assert.True(t, fresh)

	e, err := s.Get(tpl)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []string{tpl, hdr}, e.Dependencies)
	assert.Equal(t, s.BuildID(), e.BuildID)
	assert.Len(t, e.Fingerprint, 64)

	fresh, err = s.Fresh(tpl, "other options")
	require.NoError(t, err)
	assert.False(t, fresh, "changed key")

	write(t, hdr, "struct A { int y; };")
	fresh, err = s.Fresh(tpl, "k")
	require.NoError(t, err)
	assert.False(t, fresh, "changed dependency")
}

func TestFreshNeedsOutput(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "page.html")
	write(t, tpl, "x")

	s := openStore(t)
	require.NoError(t, s.Record(tpl, filepath.Join(dir, "missing.cpp"), "k", []string{tpl}))
	fresh, err := s.Fresh(tpl, "k")
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestForgetAndEntries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.html")
	b := filepath.Join(dir, "b.html")
	write(t, a, "a")
	write(t, b, "b")

	s := openStore(t)
	require.NoError(t, s.Record(b, b+".cpp", "k", []string{b}))
	require.NoError(t, s.Record(a, a+".cpp", "k", []string{a}))
	require.NoError(t, s.Record(a, a+".cpp", "k", []string{a}))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].Template)

	require.NoError(t, s.Forget(a))
	e, err := s.Get(a)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	write(t, a, "one")
	write(t, b, "two")

	ab, err := Fingerprint("k", []string{a, b})
	require.NoError(t, err)
	ba, err := Fingerprint("k", []string{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, ab, ba, "order matters")
	other, err := Fingerprint("autoescape", []string{a, b})
	require.NoError(t, err)
	assert.NotEqual(t, ab, other, "key matters")

	_, err = Fingerprint("k", []string{filepath.Join(dir, "gone")})
	assert.Error(t, err)
}

func TestBuildIDPerStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s1, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())
	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()
	assert.NotEqual(t, s1.BuildID(), s2.BuildID())
}
