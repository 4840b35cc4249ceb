package ops

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/partbridge/internal/config"
	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/kicad"
	"github.com/hpungsan/partbridge/internal/kicadcli"
	"github.com/hpungsan/partbridge/internal/libreg"
	"github.com/hpungsan/partbridge/internal/normalize"
)

// Library is an open library root: its on-disk layout, its metadata store and
// the host configuration it registers itself in. Imports and deletes rewrite
// shared files, so they are serialized through the library's write lock.
type Library struct {
	Layout libreg.Layout
	DB     *sql.DB

	// ConfigDir is the host tool configuration directory. Empty skips registration.
	ConfigDir string
	ModelsVar string
	// ToolPath is the resolved kicad-cli path, empty when unavailable.
	ToolPath string

	Normalizer *normalize.Normalizer
	Config     *config.Config
	Logger     zerolog.Logger

	writeMu sync.Mutex
}

// ResolveConfigDir returns the configured host config directory or the per-OS default.
func ResolveConfigDir(cfg *config.Config) (string, error) {
	if cfg.KiCadConfigDir != "" {
		return cfg.KiCadConfigDir, nil
	}
	return libreg.ConfigDir(cfg.KiCadVersion)
}

// ResolveRoot picks the library root: the configured value, else the root
// already registered in the host sym-lib-table, else ~/kicad_libs/<alias>.
func ResolveRoot(cfg *config.Config, configDir string) (string, error) {
	if cfg.LibraryRoot != "" {
		return cfg.LibraryRoot, nil
	}
	if configDir != "" {
		if root := libreg.DetectRoot(configDir, cfg.LibraryAlias); root != "" {
			return root, nil
		}
	}
	return libreg.DefaultRoot(cfg.LibraryAlias)
}

// OpenLibrary resolves the library root from cfg, creates its directories and
// opens its metadata store. cli may be nil or unavailable; legacy symbols then
// fail to import and the post-write upgrade is reported as a warning.
func OpenLibrary(cfg *config.Config, cli *kicadcli.CLI, logger zerolog.Logger) (*Library, error) {
	configDir, err := ResolveConfigDir(cfg)
	if err != nil {
		// Registration is optional; a missing home directory only disables it.
		logger.Warn().Err(err).Msg("host config directory unavailable, skipping registration")
		configDir = ""
	}

	root, err := ResolveRoot(cfg, configDir)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("resolve library root: %w", err))
	}

	layout := libreg.Layout{Root: root, Alias: cfg.LibraryAlias}
	if err := layout.EnsureDirs(); err != nil {
		return nil, errors.NewInternal(err)
	}

	database, err := db.Init(layout.DBPath())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	db.ConfigurePool(database, cfg)

	n := &normalize.Normalizer{ModelsVar: cfg.ModelsVar, Generator: kicad.Generator}
	if cli.Available() {
		n.Converter = cli
	}

	logger.Debug().
		Str("root", root).
		Str("config_dir", configDir).
		Str("kicad_cli", cli.Path()).
		Msg("library opened")

	return &Library{
		Layout:     layout,
		DB:         database,
		ConfigDir:  configDir,
		ModelsVar:  cfg.ModelsVar,
		ToolPath:   cli.Path(),
		Normalizer: n,
		Config:     cfg,
		Logger:     logger,
	}, nil
}

// Close closes the metadata store.
func (l *Library) Close() error {
	return l.DB.Close()
}

// Register writes the host library tables and the 3D-model path variable.
func (l *Library) Register() error {
	if l.ConfigDir == "" {
		return errors.NewInvalidRequest("host config directory is unknown; set kicad_config_dir")
	}
	if err := libreg.EnsureTables(l.Layout, l.ConfigDir); err != nil {
		return errors.NewInternal(err)
	}
	if err := libreg.SetModelsVar(l.Layout, l.ConfigDir, l.ModelsVar); err != nil {
		return errors.NewInternal(fmt.Errorf("set %s: %w", l.ModelsVar, err))
	}
	return nil
}
