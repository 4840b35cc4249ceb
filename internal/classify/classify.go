// Package classify decides which vendor produced a component archive.
package classify

import (
	"archive/zip"
	"strings"

	"github.com/hpungsan/partbridge/internal/component"
)

type urlPattern struct {
	substr string
	vendor component.Vendor
}

// urlPatterns is checked in order; the first substring match wins.
var urlPatterns = []urlPattern{
	{"ultralibrarian.com", component.UltraLibrarian},
	{"app.ultralibrarian.com", component.UltraLibrarian},
	// DigiKey's models pages are served by Ultra Librarian
	{"digikey.com/en/models", component.UltraLibrarian},
	{"snapeda.com", component.SnapEDA},
	{"componentsearchengine.com", component.SamacSys},
	{"samacsys.com", component.SamacSys},
	// Mouser resells Component Search Engine downloads
	{"mouser.com", component.SamacSys},
	{"easyeda.com", component.EasyEDA},
	{"jlcpcb.com", component.EasyEDA},
	{"lcsc.com", component.EasyEDA},
}

// Classify returns the vendor of the archive at archivePath. URL evidence wins
// over archive contents; anything unrecognized is Generic. It never fails.
func Classify(archivePath, sourceURL, referrerURL string) component.Vendor {
	if v, ok := ByURL(sourceURL, referrerURL); ok {
		return v
	}
	if v, ok := ByContent(archivePath); ok {
		return v
	}
	return component.Generic
}

// ByURL matches the source URL, then the referrer URL, against the pattern table.
func ByURL(sourceURL, referrerURL string) (component.Vendor, bool) {
	for _, u := range []string{sourceURL, referrerURL} {
		if u == "" {
			continue
		}
		lower := strings.ToLower(u)
		for _, p := range urlPatterns {
			if strings.Contains(lower, p.substr) {
				return p.vendor, true
			}
		}
	}
	return "", false
}

// ByContent inspects the archive's entry names. An unreadable archive is no match.
func ByContent(archivePath string) (component.Vendor, bool) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", false
	}
	defer zr.Close()

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		// Windows-built zips may use backslash separators
		names[i] = strings.ReplaceAll(f.Name, `\`, "/")
	}
	return byEntryNames(names)
}

func byEntryNames(names []string) (component.Vendor, bool) {
	var hasSym, hasMod, hasJSON bool
	for _, name := range names {
		// Ultra Librarian ships KiCAD/, KiCADv5/ or KiCADv6/ with a capital D.
		if strings.HasPrefix(name, "KiCAD") && strings.Contains(name, "/") {
			return component.UltraLibrarian, true
		}
		if strings.HasPrefix(name, "KiCad/") {
			return component.SamacSys, true
		}

		lower := strings.ToLower(name)
		switch {
		case strings.HasSuffix(lower, ".kicad_sym"):
			hasSym = true
		case strings.HasSuffix(lower, ".kicad_mod"):
			hasMod = true
		case strings.HasSuffix(lower, ".json"):
			hasJSON = true
		}
	}

	if hasSym && hasMod {
		return component.SnapEDA, true
	}
	if hasJSON && !hasSym && !hasMod {
		return component.EasyEDA, true
	}
	return "", false
}
