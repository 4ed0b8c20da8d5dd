package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Elenyx/discordrpg/types"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	questID      string
	quest        *lua.LTable
	steps        []rawStep
	consequences []rawConsequence
	augments     []rawAugment
	lines        []rawLine
}

// Load reads every .lua file in dir. Each file defines one quest.
func Load(dir string) ([]*types.QuestDefinition, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every .lua file in dir of fsys, compiles each into a quest
// definition and validates it. Files are processed in name order and
// every file gets a fresh VM that is discarded after loading.
func LoadFS(fsys fs.FS, dir string) ([]*types.QuestDefinition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading quest directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	sort.Strings(luaFiles)

	seen := map[string]string{}
	var defs []*types.QuestDefinition
	for _, name := range luaFiles {
		src, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		def, err := LoadSource(name, src)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("quest %q defined in both %s and %s", def.ID, prev, name)
		}
		seen[def.ID] = name
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadSource compiles a single quest file.
func LoadSource(name string, src []byte) (*types.QuestDefinition, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	fn, err := L.Load(bytes.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}

	def, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	if err := validate(def); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return def, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Definitions are data; randomness belongs to the engine.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
