// Package config loads the rebalancer settings from a YAML file.
//
// Values of the form ${VAR} are expanded from the environment after a .env
// file, when present, has been loaded. Secrets such as the Gemini API key are
// never read from the file: they come from the environment only.
package config
