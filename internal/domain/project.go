package domain

import "time"

// ConnectionProfile describes how the shadow runtime reaches the target
// controller, when one is configured.
type ConnectionProfile struct {
	Vendor  string
	Address string
	Port    int
	Slot    int
	Rack    int
}

// Project is the top-level container owning logic files, tags, versions,
// snapshots, releases, deployments, and branches.
type Project struct {
	ID         string
	Name       string
	Connection ConnectionProfile
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
