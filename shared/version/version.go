// Package version holds the poof version number.
package version

// Version contains the poof version number.
var Version = "0.1.0"

// UserAgent contains the full user agent string.
var UserAgent = "poof " + Version
