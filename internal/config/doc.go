// Package config resolves the harness configuration from layered sources.
// Precedence, lowest to highest: base document > environment document >
// local override document > PREFIX_* environment variables. Mappings are
// deep-merged key by key; every other value is replaced wholesale by the
// higher layer.
//
// A Resolver is built once per test session and passed around explicitly.
// Values are addressed by dotted paths such as "api.base_url".
package config
