// Package schema infers and checks the shape of datasets.
//
// A Descriptor is a sealed description of a value: Primitive, ArrayOf,
// ObjectOf or Union. Infer merges the descriptors of every row into one
// row descriptor, and Validate checks a value against a descriptor.
//
// Descriptors export to JSON Schema (checked with gojsonschema) and to CUE
// (checked by unification). Both compilers also accept hand-written schema
// files, so a dataset can be checked against a declared schema as well as
// an inferred one.
package schema
