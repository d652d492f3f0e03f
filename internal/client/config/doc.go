// Package config loads runtime configuration for the gophauth CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. GOPHAUTH_* environment variables.
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the gophauth HTTP API
//	-t string   per-request timeout ("10s")
//	-f string   path of the local session database
//
// JSON file
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "request_timeout": "10s",
//	  "session_db": "session.db"
//	}
package config
