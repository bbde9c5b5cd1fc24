// Package panel holds the dashboard's domain types: the server identity a
// server route loads and the viewer the routes are resolved for.
package panel

import "github.com/panelnav/panelnav/pkg/capability"

// Status is the lifecycle state reported for a server. The empty status
// means the server is installed and usable.
type Status string

const (
	StatusNone            Status = ""
	StatusInstalling      Status = "installing"
	StatusInstallFailed   Status = "install_failed"
	StatusSuspended       Status = "suspended"
	StatusRestoringBackup Status = "restoring_backup"
	StatusTransferring    Status = "transferring"
	StatusRunning         Status = "running"
)

// Blocking reports whether the status keeps the server's pages behind a
// conflict screen.
func (s Status) Blocking() bool {
	switch s {
	case StatusInstalling, StatusInstallFailed, StatusSuspended, StatusRestoringBackup, StatusTransferring:
		return true
	}
	return false
}

// Installing reports whether the installer is running or has failed.
func (s Status) Installing() bool {
	return s == StatusInstalling || s == StatusInstallFailed
}

// Server is the identity of a server as loaded for a server route.
type Server struct {
	// ID is the short identifier used in URLs.
	ID string `json:"id"`

	UUID string `json:"uuid"`

	// InternalID is the numeric id used by the admin area.
	InternalID int `json:"internal_id"`

	Name string `json:"name,omitempty"`
	Node string `json:"node,omitempty"`

	Status         Status `json:"status"`
	IsTransferring bool   `json:"is_transferring"`
}

// Loaded reports whether both identifiers are present. A server missing
// either is treated as not loaded yet.
func (s *Server) Loaded() bool {
	return s != nil && s.ID != "" && s.UUID != ""
}

// InConflictState reports whether the server's pages must be blocked.
func (s *Server) InConflictState() bool {
	if s == nil {
		return false
	}
	return s.IsTransferring || s.Status.Blocking()
}

// Transferring reports a transfer by flag or by status.
func (s *Server) Transferring() bool {
	return s != nil && (s.IsTransferring || s.Status == StatusTransferring)
}

// Viewer is the user a resolution is computed for.
type Viewer struct {
	// RootAdmin is the elevated-privilege flag. Root admins may open the
	// console of a blocked server and see the admin link.
	RootAdmin bool

	// Capabilities are the viewer's grants on the current server.
	Capabilities capability.Checker
}

// Can evaluates a requirement for the viewer. A viewer without a checker
// only satisfies empty requirements.
func (v Viewer) Can(req capability.Requirement) bool {
	if req.IsZero() {
		return true
	}
	if v.Capabilities == nil {
		return false
	}
	return v.Capabilities.Can(req)
}
