package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParse_KeepsKeyOrder verifies keys and nested values survive a round trip untouched.
func TestParse_KeepsKeyOrder(t *testing.T) {
	t.Parallel()

	src := `{"zeta":1,"alpha":{"b":2,"a":1},"mid":[3,2,1]}`

	m, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, src, string(out))
	require.Equal(t, src, string(out))
}

// TestParse_RejectsNonObjects checks arrays, scalars and null are invalid templates.
func TestParse_RejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{`[]`, `"x"`, `42`, `null`} {
		_, err := Parse([]byte(doc))
		require.ErrorIs(t, err, ErrInvalidTemplate, doc)
	}

	_, err := Parse([]byte(`{"name":`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidTemplate)
}

// TestSet_ExistingKeyKeepsPosition ensures overriding a field does not move it.
func TestSet_ExistingKeyKeepsPosition(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Set("name", "a"))
	require.NoError(t, m.Set("version", "1"))
	require.NoError(t, m.Set("name", "b"))

	require.Equal(t, []string{"name", "version"}, m.Keys())

	var name string
	require.NoError(t, m.Decode("name", &name))
	require.Equal(t, "b", name)
	require.Error(t, m.Decode("missing", &name))
}

// TestClone_IsIndependent ensures a clone shares no state with its source.
func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Set("name", "a"))

	c := m.Clone()
	require.NoError(t, c.Set("name", "b"))
	require.NoError(t, c.Set("extra", true))

	var name string
	require.NoError(t, m.Decode("name", &name))
	require.Equal(t, "a", name)
	require.Equal(t, 1, m.Len())
}

// TestWrite_Format checks indentation and the trailing newline.
func TestWrite_Format(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Set("name", "pkg"))
	require.NoError(t, m.Set("files", []string{"bin"}))

	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, Write(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"name\": \"pkg\",\n  \"files\": [\n    \"bin\"\n  ]\n}\n", string(data))
}

// TestLoadTemplate_Errors distinguishes unreadable from invalid templates.
func TestLoadTemplate_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadTemplate(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrTemplateUnreadable)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o600))

	_, err = LoadTemplate(broken)
	require.ErrorIs(t, err, ErrTemplateUnreadable)

	array := filepath.Join(dir, "array.json")
	require.NoError(t, os.WriteFile(array, []byte("[1]"), 0o600))

	_, err = LoadTemplate(array)
	require.ErrorIs(t, err, ErrInvalidTemplate)

	good := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"name":"x"}`), 0o600))

	m, err := LoadTemplate(good)
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, m.Keys())
}
