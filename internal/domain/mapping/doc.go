// Package mapping implements the data-mapping engine: field correspondences
// between arbitrary source and target record shapes, ordered transform
// pipelines executed per record, standalone validation rules, and automatic
// mapping inference when no explicit mapping exists.
//
// Records are schemaless map[string]any values; nested access uses
// dot-notation paths (e.g. "address.city").
package mapping
