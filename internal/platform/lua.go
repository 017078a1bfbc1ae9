package platform

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into
// the Lua state as a global. Call it before loading any user configuration.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	if info == nil {
		return fmt.Errorf("platform info is nil")
	}

	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(info.OS))
	L.SetField(platformTable, "arch", lua.LString(info.Arch))
	L.SetField(platformTable, "os_pattern", lua.LString(info.OSPattern))
	L.SetField(platformTable, "arch_pattern", lua.LString(info.ArchPattern))
	L.SetField(platformTable, "processor", lua.LString(info.Processor))
	L.SetField(platformTable, "machine", lua.LString(info.Machine))

	L.SetField(platformTable, "is_linux", lua.LBool(info.OS == "linux"))
	L.SetField(platformTable, "is_macos", lua.LBool(info.OS == "darwin"))
	L.SetField(platformTable, "is_windows", lua.LBool(info.OS == "windows" || info.OS == "win32"))
	L.SetField(platformTable, "is_amd64", lua.LBool(info.Arch == ArchX86_64))
	L.SetField(platformTable, "is_arm64", lua.LBool(info.Arch == ArchARM8_64))

	// distro is nil off Linux or when detection failed
	if info.OS == "linux" && info.Distro != "" {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(info.Distro))
		L.SetField(distroTable, "family", lua.LString(info.Family))
		L.SetField(distroTable, "version", lua.LString(info.Version))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	// when(condition, value) returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly returns a proxy table whose reads go to table and whose
// writes raise an error.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
