// Package orchestrator wires form definitions, bound models, submitted params,
// themes and renderers into a single entry point for rendering and validating
// forms by name.
package orchestrator
