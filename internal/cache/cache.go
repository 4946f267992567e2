// Package cache persists a compiled internal/rasl.Program to and from disk
// using github.com/dekarrin/rezi, the same binary encoding library the
// teacher uses to persist its game.State (server/dao/sqlite). This backs the
// CLI's --cache flag (SPEC_FULL §12): a convenience so a large
// program need not be recompiled on every invocation. It holds no part of an
// evaluation's runtime state — the view field and activation queue are
// always built fresh per goal (spec §6.3).
package cache

import (
	"fmt"
	"os"

	"github.com/dekarrin/rezi"

	"github.com/relang/refal/internal/rasl"
)

// Dump encodes prog and writes it to path.
func Dump(path string, prog rasl.Program) error {
	data := rezi.EncBinary(prog)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write compiled program cache %s: %w", path, err)
	}
	return nil
}

// Load reads and decodes a Program previously written by Dump.
func Load(path string) (rasl.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compiled program cache %s: %w", path, err)
	}

	prog := make(rasl.Program)
	n, err := rezi.DecBinary(data, &prog)
	if err != nil {
		return nil, fmt.Errorf("decode compiled program cache %s: %w", path, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("compiled program cache %s: decoded %d/%d bytes, file may be truncated or corrupt", path, n, len(data))
	}

	return prog, nil
}
