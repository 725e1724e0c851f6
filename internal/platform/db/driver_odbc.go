//go:build cgo

package db

// The ODBC driver links against unixODBC (or odbc32 on Windows) and is
// only available in cgo builds.
import _ "github.com/alexbrainman/odbc" // registers "odbc"
