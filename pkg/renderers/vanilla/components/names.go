package components

// Canonical component names used by the vanilla renderer and default registry.
const (
	NameInput    = "input"
	NameCheckbox = "checkbox"
	NameRadio    = "radio"
	NameSelect   = "select"
	NameTextarea = "textarea"
)

// ComponentTag is the element tag that selects a registered component by
// name, overriding the input type.
const ComponentTag = "component"
