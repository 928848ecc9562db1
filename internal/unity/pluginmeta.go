package unity

import (
	"io"
	"text/template"
)

// ExecutionOrder is a non-default script execution order for a class in
// a precompiled module.
type ExecutionOrder struct {
	Class string
	Order int
}

// PluginMeta is the importer data written next to a precompiled module.
type PluginMeta struct {
	GUID            string
	ExecutionOrders []ExecutionOrder
	Definition      *Definition
}

// Platform names understood in module definition platform lists.
const (
	PlatformEditor = "Editor"
	PlatformWSA    = "WSA"
	PlatformWin32  = "WindowsStandalone32"
	PlatformWin64  = "WindowsStandalone64"
)

// PlatformFlags are the exclude flags (1 = excluded) for the platforms
// the importer block lists. Enabled is always 1 - Exclude.
type PlatformFlags struct {
	Editor int
	WSA    int
	Win32  int
	Win64  int
}

// Platforms derives exclude flags from the definition. A non-empty
// include list wins: listed platforms are enabled and everything else
// excluded. Otherwise listed exclude platforms are excluded.
func (d *Definition) Platforms() PlatformFlags {
	list := d.ExcludePlatforms
	on, off := 1, 0
	if len(d.IncludePlatforms) > 0 {
		list = d.IncludePlatforms
		on, off = 0, 1
	}
	set := make(map[string]bool, len(list))
	for _, p := range list {
		set[p] = true
	}
	flag := func(p string) int {
		if set[p] {
			return on
		}
		return off
	}
	return PlatformFlags{
		Editor: flag(PlatformEditor),
		WSA:    flag(PlatformWSA),
		Win32:  flag(PlatformWin32),
		Win64:  flag(PlatformWin64),
	}
}

var pluginMetaTmpl = template.Must(template.New("pluginmeta").Funcs(template.FuncMap{
	"enabled": func(exclude int) int { return 1 - exclude },
}).Parse(`fileFormatVersion: 2
guid: {{.GUID}}
PluginImporter:
  externalObjects: {}
  serializedVersion: 2
  iconMap: {}
{{- if .ExecutionOrders}}
  executionOrder:
{{- range .ExecutionOrders}}
    {{.Class}}: {{.Order}}
{{- end}}
{{- else}}
  executionOrder: {}
{{- end}}
{{- with .Constraints}}
  defineConstraints:
{{- range .}}
    - {{.}}
{{- end}}
{{- else}}
  defineConstraints: []
{{- end}}
  isPreloaded: 0
  isOverridable: 0
  isExplicitlyReferenced: 0
  validateReferences: 1
  platformData:
  - first:
      : Any
    second:
      enabled: 0
      settings:
        Exclude Editor: {{.Flags.Editor}}
        Exclude Linux64: 1
        Exclude OSXUniversal: 1
        Exclude Win: {{.Flags.Win32}}
        Exclude Win64: {{.Flags.Win64}}
        Exclude WindowsStoreApps: {{.Flags.WSA}}
  - first:
      Editor: Editor
    second:
      enabled: {{enabled .Flags.Editor}}
      settings:
        CPU: AnyCPU
        DefaultValueInitialized: true
        OS: AnyOS
  - first:
      Standalone: Linux64
    second:
      enabled: 0
      settings:
        CPU: x86_64
  - first:
      Standalone: OSXUniversal
    second:
      enabled: 0
      settings:
        CPU: x86_64
  - first:
      Standalone: Win
    second:
      enabled: {{enabled .Flags.Win32}}
      settings:
        CPU: x86
  - first:
      Standalone: Win64
    second:
      enabled: {{enabled .Flags.Win64}}
      settings:
        CPU: x86_64
  - first:
      Windows Store Apps: WindowsStoreApps
    second:
      enabled: {{enabled .Flags.WSA}}
      settings:
        CPU: AnyCPU
        DontProcess: false
        PlaceholderPath:
        SDK: AnySDK
        ScriptingBackend: AnyScriptingBackend
  userData:
  assetBundleName:
  assetBundleVariant:
`))

// WritePluginMeta renders the importer .meta for a precompiled module.
func WritePluginMeta(w io.Writer, m PluginMeta) error {
	def := m.Definition
	if def == nil {
		def = &Definition{}
	}
	return pluginMetaTmpl.Execute(w, struct {
		GUID            string
		ExecutionOrders []ExecutionOrder
		Constraints     []string
		Flags           PlatformFlags
	}{
		GUID:            m.GUID,
		ExecutionOrders: m.ExecutionOrders,
		Constraints:     def.Constraints(),
		Flags:           def.Platforms(),
	})
}
