// Package form declares form definitions and builds the runtime trees that
// renderers walk.
//
// A Definition is assembled once with New and a Builder callback: elements,
// nested subforms (Subform) and collections of subforms (Many). The result is
// immutable; Extend copies it before applying further declarations and the
// Redefine* hooks patch copied entries.
//
// Definition.Instantiate binds the tree to a model and/or a validated
// params.Instance. Params win over the model so a form re-rendered after a
// failed submission shows what the user typed. Every runtime node keeps an
// owner reference; predicates referenced by render rules and conditional
// validations are resolved strictly upward through that chain and finally on
// the Host supplied at instantiation.
//
// The same declarations produce the params.Schema that validates submitted
// data (Definition.ParamsSchema, Form.ParamsSchema). Naming is shared through
// Conventions so the bracketed HTML names a browser submits decode straight
// into the generated schema.
package form
