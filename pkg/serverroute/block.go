package serverroute

import (
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/view"
)

var (
	blockInstalling = view.Block{
		Title:   "Running Installer",
		Message: "Your server should be ready soon, please try again in a few minutes.",
		Image:   "server_installing",
	}
	blockSuspended = view.Block{
		Title:   "Server Suspended",
		Message: "This server is suspended and cannot be accessed.",
		Image:   "server_error",
	}
	blockTransferring = view.Block{
		Title:   "Transferring",
		Message: "Your server is being transfered to a new node, please check back later.",
		Image:   "server_restore",
	}
	blockRestoring = view.Block{
		Title:   "Restoring from Backup",
		Message: "Your server is currently being restored from a backup, please check back in a few minutes.",
		Image:   "server_restore",
	}
)

// BlockFor returns the conflict screen for a blocked server.
func BlockFor(s *panel.Server) view.Block {
	switch {
	case s.Status.Installing():
		return blockInstalling
	case s.Status == panel.StatusSuspended:
		return blockSuspended
	case s.Transferring():
		return blockTransferring
	default:
		return blockRestoring
	}
}
