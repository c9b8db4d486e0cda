// Package config loads and validates the stabilizer YAML configuration.
//
// Loading is split into three stages: parse (with ${VAR} env expansion),
// defaults for optional fields, then validation of required fields and
// value ranges.
package config
