// Package model adapts host values (maps, structs, validated params) into the
// Record contract consumed by form instances. A Record exposes attribute reads
// by name; optional interfaces report persistence state, per-attribute error
// messages, and the model name used for scopes and submit labels.
package model
