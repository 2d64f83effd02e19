package version

// Build holds the build identifier, injected via -ldflags
// "-X conf-compose/pkg/version.Build=...". Default "dev".
var Build = "dev"

// String is the line printed by `conf-compose version`.
func String() string {
	return "conf-compose " + Build
}
