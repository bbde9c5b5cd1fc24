// Package config loads panelnav configuration.
//
// Configuration is read from panelnav.json in the working directory when
// present, then overridden by environment variables, then completed with
// defaults.
//
// # Configuration File Structure
//
//	{
//	  "panelUrl": "https://panel.example.com",
//	  "apiKey": "ptlc_...",
//	  "listen": ":8080",
//	  "session": {
//	    "loadWait": "2s",
//	    "idle": "30m"
//	  },
//	  "http": {
//	    "timeout": "15s",
//	    "secureCookie": true
//	  },
//	  "daemon": {
//	    "enabled": true,
//	    "origin": "https://panel.example.com"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "json"
//	  },
//	  "viewer": {
//	    "rootAdmin": false,
//	    "permissions": ["file.*", "backup.read"]
//	  }
//	}
//
// # Environment
//
//	PANELNAV_PANEL_URL   overrides panelUrl
//	PANELNAV_API_KEY     overrides apiKey
//	PANELNAV_LISTEN      overrides listen
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
