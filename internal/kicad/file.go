// Package kicad models the parts of KiCad's symbol library and footprint
// formats that the import pipeline reads and rewrites.
package kicad

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/partbridge/internal/sexpr"
)

// Generator is written into the header of every library partbridge saves.
const Generator = "partbridge"

// WriteFileAtomic writes data to a temp file beside path and renames it into place,
// so a failed write leaves the previous version intact.
func WriteFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp name: %w", err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	// Close before rename (required on Windows).
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(path); statErr == nil {
			if rmErr := os.Remove(path); rmErr != nil {
				return err
			}
			if err := os.Rename(tempPath, path); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	success = true
	return nil
}

// PatchGenerator rewrites the generator field in the header of the S-expression
// file at path. A missing generator field is inserted after the version field.
func PatchGenerator(path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	root, err := sexpr.ParseOne(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	setGenerator(root, name)
	return WriteFileAtomic(path, sexpr.Marshal(root))
}

func setGenerator(root *sexpr.Node, name string) {
	if gen := root.Find("generator"); gen != nil {
		gen.SetArg(0, name)
		return
	}
	root.InsertAfter("version", sexpr.Form("generator", sexpr.String(name)))
}
