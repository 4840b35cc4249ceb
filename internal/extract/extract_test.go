package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/testutil"
)

const (
	symUUID = "0f9e8d7c-6b5a-4c3d-2e1f-0a9b8c7d6e5f"
	fpUUID  = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
)

func request(t *testing.T, archive string) Request {
	t.Helper()
	return Request{ArchivePath: archive, ExtractDir: filepath.Join(t.TempDir(), "extract")}
}

func ulArchive(t *testing.T) string {
	t.Helper()
	return testutil.WriteZip(t, t.TempDir(), "ul.zip",
		testutil.File{Name: "LQFP-64_STM.step", Body: testutil.Step},
		testutil.File{Name: "KiCADv6/"},
		testutil.File{Name: "KiCADv6/2026-02-08_08-16-27.kicad_sym", Body: testutil.SymbolLib("STM32C071RBT6")},
		testutil.File{Name: "KiCADv6/footprints.pretty/LQFP-64_STM-M.kicad_mod", Body: testutil.Footprint("LQFP-64_STM-M", "")},
		testutil.File{Name: "KiCADv6/footprints.pretty/LQFP-64_STM.kicad_mod", Body: testutil.Footprint("LQFP-64_STM", "")},
		testutil.File{Name: "KiCADv6/footprints.pretty/LQFP-64_STM-L.kicad_mod", Body: testutil.Footprint("LQFP-64_STM-L", "")},
	)
}

func TestUltraLibrarian_TimestampSymbolName(t *testing.T) {
	req := request(t, ulArchive(t))
	req.SourceURL = "https://www.digikey.com/en/models/22155339"

	b, err := Extract(component.UltraLibrarian, req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if b.PartID != "STM32C071RBT6" {
		t.Errorf("PartID = %q, want STM32C071RBT6", b.PartID)
	}
	if filepath.Base(b.FootprintPath) != "LQFP-64_STM.kicad_mod" {
		t.Errorf("FootprintPath = %q, want shortest variant", b.FootprintPath)
	}
	if len(b.FootprintCandidates) != 3 {
		t.Errorf("len(FootprintCandidates) = %d, want 3", len(b.FootprintCandidates))
	}
	if filepath.Base(b.ModelStepPath) != "LQFP-64_STM.step" {
		t.Errorf("ModelStepPath = %q", b.ModelStepPath)
	}
	if b.SymbolFormat != component.FormatNative {
		t.Errorf("SymbolFormat = %q", b.SymbolFormat)
	}
	if b.Vendor != component.UltraLibrarian || b.ExtractDir != req.ExtractDir {
		t.Errorf("Vendor = %q, ExtractDir = %q", b.Vendor, b.ExtractDir)
	}
}

func TestUltraLibrarian_PrefersNativeOverLegacy(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "ul.zip",
		testutil.File{Name: "KiCAD/part.lib", Body: testutil.LegacyLib("LEGACY")},
		testutil.File{Name: "KiCAD/part.kicad_sym", Body: testutil.SymbolLib("MODERN")},
	)
	b, err := Extract(component.UltraLibrarian, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.SymbolFormat != component.FormatNative || b.PartID != "MODERN" {
		t.Errorf("SymbolFormat = %q, PartID = %q", b.SymbolFormat, b.PartID)
	}
}

func TestUltraLibrarian_LegacyOnly(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "ul.zip",
		testutil.File{Name: "KiCADv5/2026-02-08.lib", Body: testutil.LegacyLib("LM358")},
	)
	b, err := Extract(component.UltraLibrarian, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.SymbolFormat != component.FormatLegacy {
		t.Errorf("SymbolFormat = %q, want legacy", b.SymbolFormat)
	}
	if b.PartID != "LM358" {
		t.Errorf("PartID = %q, want LM358 from DEF line", b.PartID)
	}
}

func TestUltraLibrarian_ResolutionFallbacks(t *testing.T) {
	// symbol named by UUID, so content gives nothing
	files := []testutil.File{
		{Name: "KiCAD/x.kicad_sym", Body: testutil.SymbolLib(symUUID)},
		{Name: "KiCAD/fp/PKG-8.kicad_mod", Body: testutil.Footprint("PKG-8", "")},
	}

	tests := []struct {
		name     string
		source   string
		referrer string
		want     string
	}{
		{"distributor url", "https://www.digikey.com/en/models/1", "https://www.digikey.com/en/products/detail/texas-instruments/LM358DR/1234", "LM358DR"},
		{"source segment", "https://app.ultralibrarian.com/download/NE555P.zip", "", "NE555P"},
		{"uuid segment rejected", "https://app.ultralibrarian.com/details/" + fpUUID, "", "PKG-8"},
		{"footprint stem", "", "", "PKG-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(t, testutil.WriteZip(t, t.TempDir(), "ul.zip", files...))
			req.SourceURL, req.ReferrerURL = tt.source, tt.referrer
			b, err := Extract(component.UltraLibrarian, req)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if b.PartID != tt.want {
				t.Errorf("PartID = %q, want %q", b.PartID, tt.want)
			}
		})
	}
}

func TestSnapEDA_ReferrerURL(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "snap.zip",
		testutil.File{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib(symUUID)},
		testutil.File{Name: fpUUID + ".kicad_mod", Body: testutil.Footprint(fpUUID, "")},
	)
	req := request(t, archive)
	req.ReferrerURL = "https://www.digikey.com/en/products/detail/c-k/KSC721J-LFS/2414969"

	b, err := Extract(component.SnapEDA, req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.PartID != "KSC721J-LFS" {
		t.Errorf("PartID = %q, want KSC721J-LFS", b.PartID)
	}
	if b.Manufacturer != "c-k" {
		t.Errorf("Manufacturer = %q, want c-k", b.Manufacturer)
	}
	if b.ModelStepPath != "" {
		t.Errorf("ModelStepPath = %q, want none", b.ModelStepPath)
	}
}

func TestSnapEDA_ChainOrder(t *testing.T) {
	tests := []struct {
		name     string
		files    []testutil.File
		referrer string
		want     string
	}{
		{
			name: "symbol content wins",
			files: []testutil.File{
				{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib("TPS62160DGKR")},
				{Name: fpUUID + ".kicad_mod", Body: testutil.Footprint("VSSOP-8", "")},
			},
			referrer: "https://www.digikey.com/en/products/detail/ti/OTHER/1",
			want:     "TPS62160DGKR",
		},
		{
			name: "snapeda part page",
			files: []testutil.File{
				{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib(symUUID)},
			},
			referrer: "https://www.snapeda.com/parts/ESP32-WROOM-32E/Espressif%20Systems/view-part/",
			want:     "ESP32-WROOM-32E",
		},
		{
			name: "footprint content",
			files: []testutil.File{
				{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib(symUUID)},
				{Name: fpUUID + ".kicad_mod", Body: testutil.Footprint("SOT-23-5", "")},
			},
			want: "SOT-23-5",
		},
		{
			name: "symbol file name",
			files: []testutil.File{
				{Name: "BSS138.kicad_sym", Body: testutil.SymbolLib(symUUID)},
				{Name: fpUUID + ".kicad_mod", Body: testutil.Footprint(fpUUID, "")},
			},
			want: "BSS138",
		},
		{
			name: "footprint file name",
			files: []testutil.File{
				{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib(symUUID)},
				{Name: "SOIC-8.kicad_mod", Body: testutil.Footprint(fpUUID, "")},
			},
			want: "SOIC-8",
		},
		{
			name: "all uuid",
			files: []testutil.File{
				{Name: symUUID + ".kicad_sym", Body: testutil.SymbolLib(symUUID)},
				{Name: fpUUID + ".kicad_mod", Body: testutil.Footprint(fpUUID, "")},
			},
			want: component.UnknownID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(t, testutil.WriteZip(t, t.TempDir(), "snap.zip", tt.files...))
			req.ReferrerURL = tt.referrer
			b, err := Extract(component.SnapEDA, req)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if b.PartID != tt.want {
				t.Errorf("PartID = %q, want %q", b.PartID, tt.want)
			}
		})
	}
}

func TestSnapEDA_PartPageManufacturer(t *testing.T) {
	req := request(t, testutil.WriteZip(t, t.TempDir(), "snap.zip",
		testutil.File{Name: "a.kicad_sym", Body: testutil.SymbolLib(symUUID)},
	))
	req.ReferrerURL = "https://www.snapeda.com/parts/ESP32-WROOM-32E/Espressif%20Systems/view-part/"
	b, err := Extract(component.SnapEDA, req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.Manufacturer != "Espressif Systems" {
		t.Errorf("Manufacturer = %q, want decoded %q", b.Manufacturer, "Espressif Systems")
	}
}

func TestSamacSys(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "cse.zip",
		testutil.File{Name: "KiCad/ATMEGA328P-AU.kicad_sym", Body: testutil.SymbolLib("ATMEGA328P-AU", "Manufacturer_Name", "Microchip", "Description", "8-bit AVR")},
		testutil.File{Name: "KiCad/ATMEGA328P-AU.pretty/QFP80P900X900X120-32N.kicad_mod", Body: testutil.Footprint("QFP80P900X900X120-32N", "")},
		testutil.File{Name: "3D/ATMEGA328P-AU.stp", Body: testutil.Step},
	)
	b, err := Extract(component.SamacSys, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.PartID != "ATMEGA328P-AU" {
		t.Errorf("PartID = %q", b.PartID)
	}
	// model outside KiCad/ is found at the root
	if filepath.Base(b.ModelStepPath) != "ATMEGA328P-AU.stp" {
		t.Errorf("ModelStepPath = %q", b.ModelStepPath)
	}
	if b.Manufacturer != "Microchip" || b.Description != "8-bit AVR" {
		t.Errorf("Manufacturer = %q, Description = %q", b.Manufacturer, b.Description)
	}
}

func TestSamacSys_NoKiCadDir(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "cse.zip",
		testutil.File{Name: "LM7805.kicad_mod", Body: testutil.Footprint("TO-220", "")},
	)
	b, err := Extract(component.SamacSys, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.PartID != "LM7805" || b.HasSymbol() {
		t.Errorf("PartID = %q, HasSymbol = %v", b.PartID, b.HasSymbol())
	}
}

func TestGeneric(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "misc.zip",
		testutil.File{Name: "deep/nested/LM358.lib", Body: testutil.LegacyLib("LM358")},
		testutil.File{Name: "deep/SOIC-8.kicad_mod", Body: testutil.Footprint("SOIC-8", "")},
		testutil.File{Name: "models/SOIC-8.wrl", Body: testutil.Wrl},
		testutil.File{Name: "__MACOSX/deep/._SOIC-8.kicad_mod", Body: "junk"},
	)
	b, err := Extract(component.Generic, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.SymbolFormat != component.FormatLegacy || b.PartID != "LM358" {
		t.Errorf("SymbolFormat = %q, PartID = %q", b.SymbolFormat, b.PartID)
	}
	if len(b.FootprintCandidates) != 1 {
		t.Errorf("FootprintCandidates = %v, resource forks should be skipped", b.FootprintCandidates)
	}
	if filepath.Base(b.ModelWrlPath) != "SOIC-8.wrl" {
		t.Errorf("ModelWrlPath = %q", b.ModelWrlPath)
	}
}

func TestGeneric_ModelOnly(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "m.zip",
		testutil.File{Name: "x.step", Body: testutil.Step},
	)
	b, err := Extract(component.Generic, request(t, archive))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.PartID != component.UnknownID {
		t.Errorf("PartID = %q, want sentinel", b.PartID)
	}
}

func TestExtract_EasyEDAUnsupported(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "lcsc.zip", testutil.File{Name: "C123.json", Body: "{}"})
	_, err := Extract(component.EasyEDA, request(t, archive))
	if !errors.Is(err, errors.ErrUnsupportedVendor) {
		t.Fatalf("Extract() error = %v, want UNSUPPORTED_VENDOR", err)
	}
	if errors.Retryable(err) {
		t.Error("unsupported vendor must not be retryable")
	}
}

func TestExtract_NoArtifacts(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "empty.zip", testutil.File{Name: "readme.txt", Body: "nothing"})
	_, err := Extract(component.Generic, request(t, archive))
	if !errors.Is(err, errors.ErrNoArtifacts) {
		t.Fatalf("Extract() error = %v, want NO_ARTIFACTS", err)
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	bogus := testutil.WriteFile(t, dir, "bad.zip", "PK but not really")
	_, err := Extract(component.Generic, request(t, bogus))
	if !errors.Is(err, errors.ErrArchiveCorrupt) {
		t.Fatalf("Extract() error = %v, want ARCHIVE_CORRUPT", err)
	}
}

func TestExtract_MissingArchive(t *testing.T) {
	_, err := Extract(component.Generic, request(t, filepath.Join(t.TempDir(), "nope.zip")))
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Fatalf("Extract() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := testutil.WriteZip(t, dir, "evil.zip",
		testutil.File{Name: "../escape.kicad_mod", Body: testutil.Footprint("X", "")},
	)
	req := Request{ArchivePath: archive, ExtractDir: filepath.Join(dir, "out")}
	_, err := Extract(component.Generic, req)
	if !errors.Is(err, errors.ErrArchiveCorrupt) {
		t.Fatalf("Extract() error = %v, want ARCHIVE_CORRUPT", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.kicad_mod")); statErr == nil {
		t.Error("entry was written outside the extract dir")
	}
}

func TestUltraLibrarian_BackslashEntryNames(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "ul.zip",
		testutil.File{Name: `KiCADv6\`},
		testutil.File{Name: `KiCADv6\2026-02-08.kicad_sym`, Body: testutil.SymbolLib("NE555P")},
		testutil.File{Name: `KiCADv6\footprints.pretty\DIP-8.kicad_mod`, Body: testutil.Footprint("DIP-8", "")},
	)
	req := request(t, archive)
	b, err := Extract(component.UltraLibrarian, req)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if b.PartID != "NE555P" {
		t.Errorf("PartID = %q, want NE555P", b.PartID)
	}
	if want := filepath.Join(req.ExtractDir, "KiCADv6", "footprints.pretty", "DIP-8.kicad_mod"); b.FootprintPath != want {
		t.Errorf("FootprintPath = %q, want %q", b.FootprintPath, want)
	}
}

func TestExtract_RejectsBackslashTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := testutil.WriteZip(t, dir, "evil.zip",
		testutil.File{Name: `..\escape.kicad_mod`, Body: testutil.Footprint("X", "")},
	)
	_, err := Extract(component.Generic, Request{ArchivePath: archive, ExtractDir: filepath.Join(dir, "out")})
	if !errors.Is(err, errors.ErrArchiveCorrupt) {
		t.Fatalf("Extract() error = %v, want ARCHIVE_CORRUPT", err)
	}
}

func TestEntryName(t *testing.T) {
	tests := map[string]string{
		"KiCAD/x.lib":         "KiCAD/x.lib",
		`KiCADv6\x.kicad_sym`: "KiCADv6/x.kicad_sym",
		`a\b/c\d.kicad_mod`:   "a/b/c/d.kicad_mod",
		"plain.step":          "plain.step",
	}
	for in, want := range tests {
		if got := entryName(in); got != want {
			t.Errorf("entryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFor_UnknownVendorIsGeneric(t *testing.T) {
	archive := testutil.WriteZip(t, t.TempDir(), "x.zip",
		testutil.File{Name: "Q.kicad_sym", Body: testutil.SymbolLib("Q")},
	)
	b, err := For(component.Vendor("octopart"))(request(t, archive))
	if err != nil {
		t.Fatalf("For()() error = %v", err)
	}
	if b.Vendor != component.Generic {
		t.Errorf("Vendor = %q, want generic", b.Vendor)
	}
}
