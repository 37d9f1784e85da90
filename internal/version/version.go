// Package version records the build version stamped into release binaries.
package version

// Current is the semantic version of this build, without a leading v.
// Release tooling rewrites this value when cutting a tag.
const Current = "0.1.0"
