package serverroute

import (
	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/router"
)

// Base is the mount point of the server area.
const Base = "/server/:id"

const (
	ViewConsole      router.ViewID = "server.console"
	ViewFiles        router.ViewID = "server.files"
	ViewFileEdit     router.ViewID = "server.files.edit"
	ViewDatabases    router.ViewID = "server.databases"
	ViewSchedules    router.ViewID = "server.schedules"
	ViewScheduleEdit router.ViewID = "server.schedules.edit"
	ViewUsers        router.ViewID = "server.users"
	ViewBackups      router.ViewID = "server.backups"
	ViewNetwork      router.ViewID = "server.network"
	ViewStartup      router.ViewID = "server.startup"
	ViewSettings     router.ViewID = "server.settings"
)

// Routes is the server area route table.
var Routes = router.MustTable(Base,
	router.Route{Pattern: "", Exact: true, View: ViewConsole, Label: "Console"},
	router.Route{Pattern: "/files", Exact: true, View: ViewFiles, Require: capability.Require("file.*"), Label: "File Manager", ActivePrefix: true},
	router.Route{Pattern: "/files/:action(edit|new)", Exact: true, View: ViewFileEdit, Require: capability.Require("file.*")},
	router.Route{Pattern: "/databases", Exact: true, View: ViewDatabases, Require: capability.Require("database.*"), Label: "Databases", ActivePrefix: true},
	router.Route{Pattern: "/schedules", Exact: true, View: ViewSchedules, Require: capability.Require("schedule.*"), Label: "Schedules", ActivePrefix: true},
	router.Route{Pattern: "/schedules/:schedule", Exact: true, View: ViewScheduleEdit, Require: capability.Require("schedule.*")},
	router.Route{Pattern: "/users", Exact: true, View: ViewUsers, Require: capability.Require("user.*"), Label: "Users", ActivePrefix: true},
	router.Route{Pattern: "/backups", Exact: true, View: ViewBackups, Require: capability.Require("backup.*"), Label: "Backups", ActivePrefix: true},
	router.Route{Pattern: "/network", Exact: true, View: ViewNetwork, Require: capability.Require("allocation.*"), Label: "Network", ActivePrefix: true},
	router.Route{Pattern: "/startup", Exact: true, View: ViewStartup, Require: capability.Require("startup.*"), Label: "Startup", ActivePrefix: true},
	router.Route{Pattern: "/settings", Exact: true, View: ViewSettings, Require: capability.RequireAny("settings.*", "file.sftp"), Label: "Settings", ActivePrefix: true},
	router.Route{Pattern: "*", View: router.ViewNotFound},
)
