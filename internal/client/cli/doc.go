// Package cli implements the interactive gophauth client: a small REPL
// that signs users up, logs them in and out and refreshes their access
// token against a running gophauth server.
//
// Commands
//
//	help              list commands
//	signup | register create an account
//	login             sign in and store the session locally
//	whoami            show the signed-in user and token expiry
//	refresh           obtain a new access token
//	logout            revoke the session
//	ping              check that the server is reachable
//	exit | quit       leave
package cli
