package yaml

import (
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// MergeRootFromValue parses YAML data, merges a value at the root,
// and returns the result. Comments and structure in the original data are preserved.
func MergeRootFromValue(data []byte, v any) ([]byte, error) {
	file, err := parser.ParseBytes(data, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	node, err := yaml.ValueToNode(v, DefaultEncoderOptions...)
	if err != nil {
		return nil, fmt.Errorf("convert value to node: %w", err)
	}

	if len(file.Docs) == 0 || file.Docs[0].Body == nil {
		return yaml.MarshalWithOptions(v, DefaultEncoderOptions...) //nolint:wrapcheck // Return the original error.
	}

	rootPath := NewPathBuilder().Root().Build()
	err = rootPath.MergeFromNode(file, node)
	if err != nil {
		return nil, fmt.Errorf("merge yaml: %w", err)
	}

	return []byte(file.String()), nil
}

// DeleteRootKey removes key from the mapping at the root of data.
// Comments on the remaining keys are preserved. Data without the key is
// returned unchanged.
func DeleteRootKey(data []byte, key string) ([]byte, error) {
	file, err := parser.ParseBytes(data, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if len(file.Docs) == 0 {
		return data, nil
	}

	mapping, ok := file.Docs[0].Body.(*ast.MappingNode)
	if !ok {
		return data, nil
	}

	n := len(mapping.Values)
	mapping.Values = slices.DeleteFunc(mapping.Values, func(v *ast.MappingValueNode) bool {
		return v.Key.String() == key
	})
	if len(mapping.Values) == n {
		return data, nil
	}
	if len(mapping.Values) == 0 {
		return []byte{}, nil
	}

	return []byte(file.String()), nil
}
