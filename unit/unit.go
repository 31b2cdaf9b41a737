// Package unit implements the per-file compilation unit: a path, a lazily
// acquired source text, and the monotonic parsed -> resolved -> lowered
// pipeline stages, each memoized so re-entry is a no-op (spec §4.6). A Unit
// never resolves its own dependencies — it calls back into whatever owns
// the unit table (package onyxc's Program) via the two function values
// supplied at construction, keeping this package free of any dependency on
// its own caller.
package unit

import (
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"lukechampine.com/blake3"

	"github.com/onyxlang/onyxc/ast"
	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/lower"
	"github.com/onyxlang/onyxc/parser"
	"github.com/onyxlang/onyxc/prelude"
	"github.com/onyxlang/onyxc/resolve"
)

// DependencyResolver resolves the unit that an import path refers to,
// relative to the importing unit's path, returning its own path and
// resolved DST module. See package resolve for the full contract.
type DependencyResolver = resolve.DependencyResolver

// LowerDependency lowers another unit (named by path, already produced by a
// DependencyResolver call during this unit's resolve stage) and returns its
// emitted Zig file path.
type LowerDependency func(path string) (string, error)

// Unit is a single compilation unit: one source file (or one of the two
// embedded prelude paths), tracked through parse, resolve and lower.
type Unit struct {
	Path string

	resolveDep DependencyResolver
	lowerDep   LowerDependency

	source *string

	parsed bool
	astMod *ast.Module

	resolved bool
	dstMod   *dst.Module

	lowered     bool
	loweredPath string

	// Deps is the ordered, de-duplicated list of paths this unit's resolve
	// stage imported or consulted (including the builtin prelude reached by
	// the name-lookup fallback), in first-use order — the non-owning outbound
	// dependency edges of spec §3/§4.6, consulted by Lower to recurse
	// leaves-first (spec §4.5).
	Deps []string
}

// New constructs a Unit at path, wired to the given dependency callbacks.
func New(path string, resolveDep DependencyResolver, lowerDep LowerDependency) *Unit {
	return &Unit{Path: path, resolveDep: resolveDep, lowerDep: lowerDep}
}

// acquireSource returns the unit's source text, reading it from disk (or
// the embedded prelude, for the two virtual paths) exactly once.
func (u *Unit) acquireSource() (string, error) {
	if u.source != nil {
		return *u.source, nil
	}
	if src, ok := prelude.Source(u.Path); ok {
		u.source = &src
		return src, nil
	}
	data, err := os.ReadFile(u.Path + ".nx")
	if err != nil {
		return "", diag.New(diag.KindSourceRead, fmt.Sprintf("Failed to read file at %q: %s", u.Path, err))
	}
	src := string(data)
	u.source = &src
	return src, nil
}

// Parse acquires source and parses it into an AST module. Idempotent.
func (u *Unit) Parse() (*ast.Module, error) {
	if u.parsed {
		return u.astMod, nil
	}
	src, err := u.acquireSource()
	if err != nil {
		return nil, err
	}
	mod, err := parser.Parse(u.Path, src)
	if err != nil {
		return nil, err
	}
	u.astMod = mod
	u.parsed = true
	return mod, nil
}

// Resolve parses first, then resolves against a fresh DST module bound to
// this unit's path. Idempotent. Per spec §5, the AST is dropped once
// resolved — it is not readable again afterwards.
func (u *Unit) Resolve() (*dst.Module, error) {
	if u.resolved {
		return u.dstMod, nil
	}
	astMod, err := u.Parse()
	if err != nil {
		return nil, err
	}
	src, err := u.acquireSource()
	if err != nil {
		return nil, err
	}

	deps := func(fromPath, importPath string) (string, *dst.Module, error) {
		targetPath, mod, err := u.resolveDep(fromPath, importPath)
		if err != nil {
			return targetPath, nil, err
		}
		if targetPath != fromPath {
			u.addDep(targetPath)
		}
		return targetPath, mod, nil
	}

	mod, err := resolve.Resolve(u.Path, src, astMod, deps)
	if err != nil {
		return nil, err
	}
	u.dstMod = mod
	u.resolved = true
	u.astMod = nil
	return mod, nil
}

func (u *Unit) addDep(path string) {
	for _, d := range u.Deps {
		if d == path {
			return
		}
	}
	u.Deps = append(u.Deps, path)
}

// Lower resolves first, then recursively lowers every dependency before
// emitting this unit's own Zig text to <cacheDir>/<hash>.zig. Idempotent.
// writeFile performs the actual write, so the owning Program controls disk
// access and can keep it mockable in tests.
func (u *Unit) Lower(cacheDir string, writeFile func(outPath, text string) error) (string, error) {
	if u.lowered {
		return u.loweredPath, nil
	}
	mod, err := u.Resolve()
	if err != nil {
		return "", err
	}
	for _, dep := range u.Deps {
		if _, err := u.lowerDep(dep); err != nil {
			return "", err
		}
	}
	text, err := lower.Module(mod)
	if err != nil {
		return "", err
	}
	outPath := path.Join(cacheDir, u.Hash()+".zig")
	if err := writeFile(outPath, text); err != nil {
		return "", diag.New(diag.KindSourceRead, fmt.Sprintf("Failed to write %q: %s", outPath, err))
	}
	u.loweredPath = outPath
	u.lowered = true
	return outPath, nil
}

// Hash returns the first 8 hex characters of the BLAKE3 hash of the unit's
// path string (spec §4.6).
func (u *Unit) Hash() string {
	sum := blake3.Sum256([]byte(u.Path))
	return hex.EncodeToString(sum[:])[:8]
}
