// Package params implements the parameter-validation schemas generated from
// form definitions. A Schema is an immutable, ordered set of typed fields,
// nested objects (Has) and nested collections (Each). Schema.New coerces a
// submitted value map into an Instance which validates on demand and reports
// Rails-style messages ("Name can't be blank"). Nested issues are reported
// before the instance's own field issues, both in declaration order.
//
// Submitted data usually arrives as bracketed form names; ParseForm turns
// url.Values into the nested map shape Schema.New expects, and ParseJSON does
// the same for JSON bodies. Collections accept either a slice or an
// index-keyed map ({"0": {...}, "1": {...}}), normalised into an ordered slice
// sorted by numeric key.
package params
