package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/rasl"
)

func testProgram() rasl.Program {
	return rasl.Program{
		"test.Palindrome": rasl.Function{
			Name: "test.Palindrome",
			Commands: []rasl.Command{
				{Op: rasl.MatchEmpty},
				{Op: rasl.InsertSymbol, Str: "True"},
				{Op: rasl.CompleteStep},
				{Op: rasl.NextStep},
			},
		},
	}
}

func Test_DumpAndLoad_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cache")
	prog := testProgram()

	if !assert.NoError(t, Dump(path, prog)) {
		return
	}

	loaded, err := Load(path)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, prog, loaded)
}

func Test_Load_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cache"))
	assert.Error(t, err)
}

func Test_Load_truncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cache")
	if !assert.NoError(t, Dump(path, testProgram())) {
		return
	}

	data, err := os.ReadFile(path)
	if !assert.NoError(t, err) {
		return
	}
	if !assert.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644)) {
		return
	}

	_, err = Load(path)
	assert.Error(t, err)
}
