package component

import "strings"

// Vendor identifies which vendor packaged an archive. The set is closed.
type Vendor string

const (
	UltraLibrarian Vendor = "ultra_librarian"
	SnapEDA        Vendor = "snapeda"
	SamacSys       Vendor = "samacsys"
	EasyEDA        Vendor = "easyeda"
	Generic        Vendor = "generic"
)

// Vendors lists every vendor in classification-table order, Generic last.
var Vendors = []Vendor{UltraLibrarian, SnapEDA, SamacSys, EasyEDA, Generic}

// ParseVendor maps a stored or user-supplied vendor name back to a Vendor.
func ParseVendor(s string) (Vendor, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range Vendors {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

func (v Vendor) String() string {
	return string(v)
}
