// Package expr provides CEL (Common Expression Language) match expressions
// for tracks.
//
// A match expression is evaluated alongside a track's condition and must
// return a bool. Expressions have access to variables:
//   - `ext`, `filename`, `filepath`, `origin`, `phase`, `outline`, `home`,
//     `css_path` (string): the document's processing environment
//   - `includes` (list<string>): files included by the document
//   - `text` (string): the current document text
//   - `meta` (map): YAML front matter, or the MultiMarkdown header block
//
// And to functions for path handling (pathBase, pathDir, pathExt) and for
// reading values from YAML files (yamlPath), in addition to the CEL strings,
// lists and math extensions.
package expr
