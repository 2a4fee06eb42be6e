// Package config manages the user's configuration file: saved hub
// connection profiles and application preferences.
//
// The file is YAML at an OS-appropriate location (see GetConfigDir) and is
// written atomically. Hub profiles hold the host and Maker API app ID only;
// access tokens are never written to disk and must be supplied per run via
// flag, environment variable, or interactive prompt.
package config
