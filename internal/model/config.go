package model

// Theme is the UI color mode.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ModelInfo is one entry of the model catalog.
type ModelInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ModelNames is the fixed set of model names a bot may use, in catalog order.
var ModelNames = []string{
	"gpt-4",
	"gpt-4-0314",
	"gpt-4-0613",
	"gpt-4-32k",
	"gpt-4-32k-0314",
	"gpt-4-32k-0613",
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-0301",
	"gpt-3.5-turbo-0613",
	"gpt-3.5-turbo-16k",
	"gpt-3.5-turbo-16k-0613",
}

// ValidModels are the allowed bot model names.
var ValidModels = func() map[string]bool {
	m := make(map[string]bool, len(ModelNames))
	for _, n := range ModelNames {
		m[n] = true
	}
	return m
}()

// DefaultModels returns a fresh copy of the catalog with every model available.
func DefaultModels() []ModelInfo {
	models := make([]ModelInfo, len(ModelNames))
	for i, n := range ModelNames {
		models[i] = ModelInfo{Name: n, Available: true}
	}
	return models
}

// Config holds UI preferences.
type Config struct {
	Avatar                  string      `json:"avatar"`
	FontSize                int         `json:"fontSize"`
	Theme                   Theme       `json:"theme"`
	EnableAutoGenerateTitle bool        `json:"enableAutoGenerateTitle"`
	SidebarWidth            int         `json:"sidebarWidth"`
	Models                  []ModelInfo `json:"models"`
}

// DefaultConfig returns the first-load preferences.
func DefaultConfig() Config {
	return Config{
		Avatar:                  "1f603",
		FontSize:                14,
		Theme:                   ThemeDark,
		EnableAutoGenerateTitle: true,
		SidebarWidth:            300,
		Models:                  DefaultModels(),
	}
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	out := c
	if c.Models != nil {
		out.Models = append([]ModelInfo(nil), c.Models...)
	}
	return out
}
