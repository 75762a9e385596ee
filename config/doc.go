// Package config loads crewflow runtime configuration and declarative
// crew definitions. Runtime config layers defaults, a YAML file, and
// CREWFLOW_-prefixed environment variables, in that order of precedence.
package config
