// Package onyxc is the compiler's root package: Program, the object that
// owns the unit table, the cache directory, and the external toolchain
// invocation. It is the only package that creates directories, writes files
// or spawns a child process; package unit reads source files itself, and
// every other package is pure and side-effect-free except through the
// callbacks Program hands them.
package onyxc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/prelude"
	"github.com/onyxlang/onyxc/unit"
)

// Program is the set of units reachable from a single entry path, plus the
// cache directory and external zig binary path used by Run and Compile.
type Program struct {
	cacheDir string
	zigPath  string

	units      map[string]*unit.Unit
	inProgress map[string]bool
	group      singleflight.Group

	cacheDirEnsured bool
	entryPath       string
}

// NewProgram constructs a Program. cacheDir defaults to ".cache" and zigPath
// to "zig" when empty, matching the CLI collaborator's documented defaults
// (spec §6).
func NewProgram(cacheDir, zigPath string) *Program {
	if cacheDir == "" {
		cacheDir = ".cache"
	}
	if zigPath == "" {
		zigPath = "zig"
	}
	return &Program{
		cacheDir:   cacheDir,
		zigPath:    zigPath,
		units:      make(map[string]*unit.Unit),
		inProgress: make(map[string]bool),
	}
}

// joinImportPath resolves a relative "from" string against the importing
// unit's own path. The two prelude paths are absolute virtual names and are
// never joined against anything.
func joinImportPath(fromPath, rel string) string {
	if prelude.IsPreludePath(rel) {
		return rel
	}
	dir := path.Dir(fromPath)
	if dir == "." {
		return rel
	}
	return path.Join(dir, rel)
}

func (p *Program) getOrCreateUnit(unitPath string) *unit.Unit {
	if u, ok := p.units[unitPath]; ok {
		return u
	}
	u := unit.New(unitPath, p.resolveDependency, p.lowerDependency)
	p.units[unitPath] = u
	return u
}

// resolveDependency is the unit.DependencyResolver every Unit in this
// Program is constructed with. It joins the relative import path, then
// either short-circuits a direct self-import (letting package resolve raise
// the specific diagnostic) or resolves the target through the program's
// cycle-checked, memoized path.
func (p *Program) resolveDependency(fromPath, rel string) (string, *dst.Module, error) {
	target := joinImportPath(fromPath, rel)
	if target == fromPath {
		return target, nil, nil
	}
	_, mod, err := p.resolvePath(target)
	if err != nil {
		return target, nil, err
	}
	return target, mod, nil
}

// lowerDependency is the unit.LowerDependency every Unit is constructed
// with: lower another unit (by path) to its own cache file.
func (p *Program) lowerDependency(unitPath string) (string, error) {
	return p.getOrCreateUnit(unitPath).Lower(p.absCacheDir(), p.writeFile)
}

func (p *Program) writeFile(outPath, text string) error {
	return os.WriteFile(outPath, []byte(text), 0o644)
}

func (p *Program) absCacheDir() string {
	abs, err := filepath.Abs(p.cacheDir)
	if err != nil {
		return p.cacheDir
	}
	return abs
}

func (p *Program) ensureCacheDir() error {
	if p.cacheDirEnsured {
		return nil
	}
	if err := os.MkdirAll(p.absCacheDir(), 0o755); err != nil {
		return diag.New(diag.KindSourceRead, fmt.Sprintf("Failed to create cache directory %q: %s", p.cacheDir, err))
	}
	p.cacheDirEnsured = true
	return nil
}

// resolvePath resolves the unit at path, memoizing across repeat calls and
// rejecting reentrant resolution of a path still in progress on the
// current (single-threaded) call stack as an import cycle (spec §5).
// singleflight.Group generalizes the teacher's concurrent-result
// deduplication; in this single-threaded driver its "in flight" branch is
// reached only via the reentrant case already rejected above, and it keeps
// no result once a call returns, so repeat calls rely on Unit.Resolve's own
// memoization.
func (p *Program) resolvePath(unitPath string) (*unit.Unit, *dst.Module, error) {
	u := p.getOrCreateUnit(unitPath)
	if p.inProgress[unitPath] {
		return nil, nil, diag.New(diag.KindImportCycle, fmt.Sprintf("Import cycle detected at %q", unitPath))
	}
	p.inProgress[unitPath] = true
	defer delete(p.inProgress, unitPath)

	v, err, _ := p.group.Do(unitPath, func() (interface{}, error) {
		return u.Resolve()
	})
	if err != nil {
		return nil, nil, err
	}
	return u, v.(*dst.Module), nil
}

// Resolve resolves the unit at path, creating the cache directory on first
// call. The first path ever resolved becomes the program's entry unit.
func (p *Program) Resolve(path string) (*unit.Unit, error) {
	if err := p.ensureCacheDir(); err != nil {
		return nil, err
	}
	if p.entryPath == "" {
		p.entryPath = path
	}
	u, _, err := p.resolvePath(path)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Lower resolves then lowers the unit at entryPath, returning the absolute
// path of its emitted Zig file (spec §4.7).
func (p *Program) Lower(entryPath string) (string, error) {
	u, err := p.Resolve(entryPath)
	if err != nil {
		return "", err
	}
	return u.Lower(p.absCacheDir(), p.writeFile)
}

func (p *Program) zigCacheDir() string {
	return filepath.Join(p.absCacheDir(), "zig")
}

func (p *Program) runToolchain(cmd *exec.Cmd) error {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			panicVal := diag.New(diag.KindToolchainFailure, fmt.Sprintf("Zig exited with status %d", exitErr.ExitCode()))
			panicVal.AddNote(stdout.String(), nil)
			panicVal.AddNote(stderr.String(), nil)
			return panicVal
		}
		return diag.New(diag.KindToolchainFailure, err.Error())
	}
	return nil
}

// Run lowers entryPath and invokes the external zig toolchain to run it
// directly (spec §6: `<tool> run <entry.zig> -lc --cache-dir <cache>/zig`).
func (p *Program) Run(entryPath string) error {
	zigFile, err := p.Lower(entryPath)
	if err != nil {
		return err
	}
	cmd := exec.Command(p.zigPath, "run", zigFile, "-lc", "--cache-dir", p.zigCacheDir())
	return p.runToolchain(cmd)
}

// Compile lowers entryPath and invokes the external zig toolchain to build
// an executable at output (spec §6: `<tool> build-exe <entry.zig> -lc
// --cache-dir <cache>/zig -femit-bin=<output>`).
func (p *Program) Compile(entryPath, output string) error {
	zigFile, err := p.Lower(entryPath)
	if err != nil {
		return err
	}
	cmd := exec.Command(p.zigPath, "build-exe", zigFile, "-lc", "--cache-dir", p.zigCacheDir(), "-femit-bin="+output)
	return p.runToolchain(cmd)
}
