package config

import (
	lua "github.com/yuin/gopher-lua"
)

// safeLibs are the only standard libraries opened in a config VM.
// os, io and debug are never loaded.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals load external code and are removed after the base library
// is opened.
var blockedGlobals = []string{
	"require",
	"module",
	"package",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"collectgarbage",
}

// newSandboxedVM creates a Lua VM that can evaluate a declarative config
// file but cannot touch the filesystem, run commands, or load other code.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
