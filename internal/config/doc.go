// Package config loads and validates the localrag configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (explicit path, then <docs_dir>/config.yaml, then ./config.yaml), a .env file,
// environment variables and command-line flags. The legacy "chromadb" section
// is accepted as an alias of "vector_store".
package config
