package domain

import "time"

// Vendor flavours recognised for LogicFile source.
const (
	VendorNeutral   = "neutral"
	VendorSiemens   = "siemens"
	VendorRockwell  = "rockwell"
	VendorBeckhoff  = "beckhoff"
)

// LogicFile is a named Structured Text source belonging to a project.
// It is mutable between version captures and immutable at capture time.
type LogicFile struct {
	ID         string
	ProjectID  string
	Name       string
	Content    string
	Vendor     string
	Author     string
	ModifiedAt time.Time
}
