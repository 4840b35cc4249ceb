package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/partbridge/internal/classify"
	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/extract"
	"github.com/hpungsan/partbridge/internal/normalize"
)

// Import statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Warning texts surfaced to callers.
const (
	warnNoSymbol    = "No symbol file found in download"
	warnNoFootprint = "No footprint file found in download"
	warnNoModel     = "No 3D model found in download"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	ArchivePath string // required
	SourceURL   string // optional, strongest vendor signal
	ReferrerURL string // optional
	// Overwrite acknowledges that an existing record will be replaced. Re-imports
	// always upsert; without it the replacement is reported as a warning.
	Overwrite bool
}

// ImportOutput is the structured result of one pipeline run. Fatal errors are
// reported here, not as a Go error, so the warnings gathered so far survive.
type ImportOutput struct {
	Status        string   `json:"status"`
	MPN           string   `json:"mpn,omitempty"`
	ComponentID   string   `json:"component_id,omitempty"`
	Vendor        string   `json:"vendor,omitempty"`
	SymbolName    string   `json:"symbol_name,omitempty"`
	FootprintName string   `json:"footprint_name,omitempty"`
	Has3DModel    bool     `json:"has_3d_model"`
	Warnings      []string `json:"warnings"`
	Error         string   `json:"error,omitempty"`
	ErrorCode     string   `json:"error_code,omitempty"`
}

type importRun struct {
	lib *Library
	log zerolog.Logger
	out *ImportOutput
}

func (r *importRun) warn(msg string) {
	r.log.Warn().Msg(msg)
	r.out.Warnings = append(r.out.Warnings, msg)
}

func (r *importRun) stage(name string) {
	r.log.Debug().Str("stage", name).Str("mpn", r.out.MPN).Str("vendor", r.out.Vendor).Msg("stage")
}

// Import runs one archive through classify, extract, normalize and link, then
// registers the library and records the result. The returned error is non-nil
// only for invalid input; pipeline failures come back as StatusError.
func Import(ctx context.Context, lib *Library, input ImportInput) (*ImportOutput, error) {
	archive := strings.TrimSpace(input.ArchivePath)
	if archive == "" {
		return nil, errors.NewInvalidRequest("archive path is required")
	}
	if abs, err := filepath.Abs(archive); err == nil {
		archive = abs
	}

	lib.writeMu.Lock()
	defer lib.writeMu.Unlock()

	run := &importRun{
		lib: lib,
		log: lib.Logger.With().Str("archive", archive).Logger(),
		out: &ImportOutput{Warnings: []string{}},
	}

	err := run.pipeline(ctx, archive, input)
	if err != nil {
		run.out.Status = StatusError
		run.out.Error = errors.MessageOf(err)
		run.out.ErrorCode = string(errors.CodeOf(err))
		run.log.Error().Err(err).Str("mpn", run.out.MPN).Msg("import failed")
		run.logFailure(archive, err)
		return run.out, nil
	}

	if run.out.SymbolName != "" && run.out.FootprintName != "" {
		run.out.Status = StatusSuccess
	} else {
		run.out.Status = StatusPartial
	}
	run.log.Info().
		Str("status", run.out.Status).
		Str("mpn", run.out.MPN).
		Str("vendor", run.out.Vendor).
		Bool("has_3d_model", run.out.Has3DModel).
		Int("warnings", len(run.out.Warnings)).
		Msg("import finished")
	return run.out, nil
}

func (r *importRun) pipeline(ctx context.Context, archive string, input ImportInput) error {
	lib := r.lib
	layout := lib.Layout

	if err := layout.EnsureDirs(); err != nil {
		return errors.NewInternal(err)
	}

	extractDir, err := os.MkdirTemp("", "partbridge_")
	if err != nil {
		return errors.NewInternal(fmt.Errorf("create extraction directory: %w", err))
	}
	defer os.RemoveAll(extractDir)

	r.stage("classify")
	vendor := classify.Classify(archive, input.SourceURL, input.ReferrerURL)
	r.out.Vendor = vendor.String()

	r.stage("extract")
	bundle, err := extract.Extract(vendor, extract.Request{
		ArchivePath: archive,
		ExtractDir:  extractDir,
		SourceURL:   input.SourceURL,
		ReferrerURL: input.ReferrerURL,
	})
	if err != nil {
		return err
	}

	mpn := normalize.SanitizeName(bundle.PartID)
	bundle.PartID = mpn
	r.out.MPN = mpn
	if mpn == component.UnknownID {
		r.warn("Could not resolve a part number; imported as " + component.UnknownID)
	}

	exists, err := db.Exists(lib.DB, mpn)
	if err != nil {
		return err
	}
	if exists && !input.Overwrite {
		r.warn(fmt.Sprintf("Component %s already exists, updating", mpn))
	}

	if err := checkCancelled(ctx); err != nil {
		return err
	}

	r.stage("symbol")
	if bundle.HasSymbol() {
		name, err := lib.Normalizer.Symbol(ctx, bundle, layout.SymbolLibPath())
		if err != nil {
			return err
		}
		r.out.SymbolName = name
	} else {
		r.warn(warnNoSymbol)
	}

	r.stage("footprint")
	if bundle.HasFootprint() {
		name, err := lib.Normalizer.Footprint(bundle, layout.FootprintDir(), layout.ModelsDir())
		if err != nil {
			return err
		}
		r.out.FootprintName = name
	} else {
		r.warn(warnNoFootprint)
	}

	if r.out.SymbolName != "" && r.out.FootprintName != "" {
		r.stage("link")
		if err := lib.Normalizer.Link(layout.SymbolLibPath(), r.out.SymbolName, layout.Alias, r.out.FootprintName); err != nil {
			return err
		}
	}

	if r.out.SymbolName != "" {
		r.stage("upgrade")
		if err := lib.Normalizer.PostProcess(ctx, layout.SymbolLibPath()); err != nil {
			r.warn("Symbol library format upgrade skipped: " + err.Error())
		}
	}

	if lib.ConfigDir != "" {
		r.stage("register")
		if err := lib.Register(); err != nil {
			r.warn("Library registration failed: " + err.Error())
		}
	}

	if err := checkCancelled(ctx); err != nil {
		return err
	}

	r.stage("record")
	r.out.Has3DModel = bundle.Has3DModel()
	c := &component.Component{
		MPN:           mpn,
		Manufacturer:  optional(bundle.Manufacturer),
		Description:   optional(bundle.Description),
		SymbolName:    optional(r.out.SymbolName),
		FootprintName: optional(r.out.FootprintName),
		Has3DModel:    r.out.Has3DModel,
		Vendor:        optional(vendor.String()),
		SourceURL:     optional(input.SourceURL),
		ReferrerURL:   optional(input.ReferrerURL),
	}
	if err := db.Upsert(lib.DB, c); err != nil {
		return err
	}
	r.out.ComponentID = c.ID

	if err := db.LogImport(lib.DB, &component.LogEntry{
		ComponentID: &c.ID,
		Action:      component.ActionImport,
		SourceFile:  &archive,
	}); err != nil {
		r.warn("Activity log write failed: " + err.Error())
	}

	if !r.out.Has3DModel {
		r.warn(warnNoModel)
	}
	return nil
}

// logFailure records a failed run. The component is referenced when its MPN
// was resolved and already has a record.
func (r *importRun) logFailure(archive string, cause error) {
	entry := &component.LogEntry{
		Action:       component.ActionImportFailed,
		SourceFile:   &archive,
		ErrorMessage: optional(cause.Error()),
	}
	if r.out.MPN != "" {
		if c, err := db.GetByMPN(r.lib.DB, r.out.MPN); err == nil {
			entry.ComponentID = &c.ID
		}
	}
	if err := db.LogImport(r.lib.DB, entry); err != nil {
		r.log.Warn().Err(err).Msg("failed to record import failure")
	}
}

func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.NewCancelled("import")
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
