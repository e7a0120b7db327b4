// Package formfile builds form definitions from YAML or JSON files so forms
// can be declared outside Go code and reloaded while a server runs.
//
// A file holds a list of forms:
//
//	forms:
//	  - name: signup
//	    scope: signup
//	    conventions: rails
//	    fields:
//	      - name: email
//	        input: email
//	        attrs: {placeholder: "you@example.com"}
//	        required: true
//	      - name: pets
//	        kind: many
//	        fields:
//	          - name: name
//
// Forms may extend another form by name and patch inherited fields with
// "redefine: true".
package formfile
