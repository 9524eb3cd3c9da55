package version

// Version is the application version. Overridden at build time via
// -ldflags "-X walkumentary/pkg/version.Version=...".
var Version = "0.4.0-dev"
