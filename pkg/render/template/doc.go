// Package template defines the template seam renderers use for wrapper
// markup. The gotemplate subpackage backs it with pongo2.
package template
