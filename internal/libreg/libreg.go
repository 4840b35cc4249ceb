package libreg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/partbridge/internal/kicad"
	"github.com/hpungsan/partbridge/internal/sexpr"
)

const (
	symTable    = "sym-lib-table"
	fpTable     = "fp-lib-table"
	commonJSON  = "kicad_common.json"
	tableFormat = "7"
)

// ConfigDir returns the host tool's per-version configuration directory.
func ConfigDir(version string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return configDirFor(runtime.GOOS, home, os.Getenv("APPDATA"), version), nil
}

func configDirFor(goos, home, appData, version string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Preferences", "kicad", version)
	case "windows":
		return filepath.Join(appData, "kicad", version)
	default:
		return filepath.Join(home, ".config", "kicad", version)
	}
}

// DefaultRoot returns ~/kicad_libs/<alias>.
func DefaultRoot(alias string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, "kicad_libs", alias), nil
}

// DetectRoot returns the directory holding the symbol library registered under
// alias in configDir's sym-lib-table, or "" when there is no usable entry.
func DetectRoot(configDir, alias string) string {
	table, err := loadTable(filepath.Join(configDir, symTable))
	if err != nil || table == nil {
		return ""
	}
	entry := findEntry(table, alias)
	if entry == nil {
		return ""
	}
	uri := entry.Find("uri").Arg(0)
	if uri == "" {
		return ""
	}
	return filepath.Dir(uri)
}

// EnsureTables registers the layout's symbol library and footprint directory
// in configDir's library tables. An existing entry has its uri rewritten.
func EnsureTables(l Layout, configDir string) error {
	if err := ensureEntry(filepath.Join(configDir, symTable), "sym_lib_table",
		l.Alias, l.SymbolLibPath(), "partbridge imported symbols"); err != nil {
		return fmt.Errorf("register symbol library: %w", err)
	}
	if err := ensureEntry(filepath.Join(configDir, fpTable), "fp_lib_table",
		l.Alias, l.FootprintDir(), "partbridge imported footprints"); err != nil {
		return fmt.Errorf("register footprint library: %w", err)
	}
	return nil
}

// SetModelsVar points varName at the layout's model directory in
// kicad_common.json. Other settings are preserved.
func SetModelsVar(l Layout, configDir, varName string) error {
	path := filepath.Join(configDir, commonJSON)

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", commonJSON, err)
			}
			if doc == nil {
				doc = map[string]any{}
			}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", commonJSON, err)
	}

	env, ok := doc["environment"].(map[string]any)
	if !ok {
		env = map[string]any{}
		doc["environment"] = env
	}
	vars, ok := env["vars"].(map[string]any)
	if !ok {
		vars = map[string]any{}
		env["vars"] = vars
	}
	vars[varName] = l.ModelsDir()

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", commonJSON, err)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return kicad.WriteFileAtomic(path, append(out, '\n'))
}

// Status reports which registrations are in place for a layout.
type Status struct {
	SymbolTable    bool   `json:"symbol_table"`
	FootprintTable bool   `json:"footprint_table"`
	ModelsVar      bool   `json:"models_var"`
	ConfigDir      string `json:"config_dir"`
}

// Inspect checks configDir for entries that point at the layout.
func Inspect(l Layout, configDir, varName string) Status {
	st := Status{ConfigDir: configDir}
	st.SymbolTable = entryURI(filepath.Join(configDir, symTable), l.Alias) == l.SymbolLibPath()
	st.FootprintTable = entryURI(filepath.Join(configDir, fpTable), l.Alias) == l.FootprintDir()

	data, err := os.ReadFile(filepath.Join(configDir, commonJSON))
	if err != nil {
		return st
	}
	var doc struct {
		Environment struct {
			Vars map[string]string `json:"vars"`
		} `json:"environment"`
	}
	if json.Unmarshal(data, &doc) == nil {
		st.ModelsVar = doc.Environment.Vars[varName] == l.ModelsDir()
	}
	return st
}

func entryURI(tablePath, alias string) string {
	table, err := loadTable(tablePath)
	if err != nil || table == nil {
		return ""
	}
	if e := findEntry(table, alias); e != nil {
		return e.Find("uri").Arg(0)
	}
	return ""
}

// loadTable returns nil, nil when the table file does not exist or is blank.
func loadTable(path string) (*sexpr.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	nodes, err := sexpr.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func findEntry(table *sexpr.Node, alias string) *sexpr.Node {
	for _, lib := range table.FindAll("lib") {
		if lib.Find("name").Arg(0) == alias {
			return lib
		}
	}
	return nil
}

func ensureEntry(path, head, alias, uri, descr string) error {
	table, err := loadTable(path)
	if err != nil {
		return err
	}

	if table == nil {
		table = sexpr.Form(head, sexpr.Form("version", sexpr.Atom(tableFormat)))
	}
	if entry := findEntry(table, alias); entry != nil {
		uriNode := entry.Find("uri")
		if uriNode == nil {
			entry.InsertAfter("type", sexpr.Form("uri", sexpr.String(uri)))
		} else if uriNode.Arg(0) == uri {
			return nil
		} else {
			uriNode.SetArg(0, uri)
		}
	} else {
		table.Append(sexpr.Form("lib",
			sexpr.Form("name", sexpr.String(alias)),
			sexpr.Form("type", sexpr.String("KiCad")),
			sexpr.Form("uri", sexpr.String(uri)),
			sexpr.Form("options", sexpr.String("")),
			sexpr.Form("descr", sexpr.String(descr)),
		))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return kicad.WriteFileAtomic(path, sexpr.Marshal(table))
}
