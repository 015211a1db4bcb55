package expr

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/macropower/conductor/pkg/document"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(filepath).startsWith("draft-").
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathBase: invalid string value")
					}

					return types.String(filepath.Base(pathValue))
				}),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: pathDir(filepath).contains("/blog/").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathDir: invalid string value")
					}

					return types.String(filepath.Dir(pathValue))
				}),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(filepath) in [".md", ".markdown"].
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathExt: invalid string value")
					}

					return types.String(filepath.Ext(pathValue))
				}),
			),
		),

		// `fileExists` reports whether a file or directory exists.
		// Example: fileExists(origin + "/.obsidian").
		cel.Function("fileExists",
			cel.Overload("file_exists", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("fileExists: invalid string value")
					}

					_, err := os.Stat(pathValue)

					return types.Bool(err == nil)
				}),
			),
		),

		// `wordCount` counts whitespace separated words.
		// Example: wordCount(text) > 1000.
		cel.Function("wordCount",
			cel.Overload("word_count", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String).Value().(string)
					if !ok {
						return types.NewErr("wordCount: invalid string value")
					}

					return types.Int(len(strings.Fields(str)))
				}),
			),
		),

		// `frontMatter` returns a value from the YAML front matter of a
		// document, or null. Dotted keys address nested values.
		// Example: frontMatter(text, "author.name") == "Me".
		cel.Function("frontMatter",
			cel.Overload("front_matter", []*cel.Type{cel.StringType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(text, key ref.Val) ref.Val {
					textStr, ok := text.(types.String).Value().(string)
					if !ok {
						return types.NewErr("frontMatter: invalid text")
					}

					keyStr, ok := key.(types.String).Value().(string)
					if !ok {
						return types.NewErr("frontMatter: invalid key")
					}

					v, found := document.YAMLValue(textStr, keyStr)
					if !found {
						return types.NullValue
					}

					return ConvertToCELValue(v)
				}),
			),
		),

		// `yamlPath` returns the value at a YAML path in a file, or null.
		// Example: yamlPath(origin + "/_config.yml", "$.theme") == "minima".
		cel.Function("yamlPath",
			cel.Overload("yaml_path", []*cel.Type{cel.StringType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(filePath, yamlPathExpr ref.Val) ref.Val {
					filePathStr, ok := filePath.(types.String).Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid file path")
					}

					yamlPathStr, ok := yamlPathExpr.(types.String).Value().(string)
					if !ok {
						return types.NewErr("yamlPath: invalid yaml path")
					}

					return readYAMLPath(filePathStr, yamlPathStr)
				}),
			),
		),
	}
}

// readYAMLPath returns null, rather than an error, for unreadable files and
// missing paths so that a match on another project's file is simply false.
//
//nolint:ireturn // Following CEL's function signature.
func readYAMLPath(file, path string) ref.Val {
	logger := slog.With(
		slog.String("file", file),
		slog.String("yamlPath", path),
	)

	p, err := yaml.PathString(path)
	if err != nil {
		logger.Debug("invalid YAML path", slog.Any("error", err))
		return types.NullValue
	}

	f, err := os.Open(file) //nolint:gosec // G304: Path comes from the tracks file.
	if err != nil {
		logger.Debug("open YAML file", slog.Any("error", err))
		return types.NullValue
	}
	defer f.Close() //nolint:errcheck // Read only.

	var value any

	err = p.Read(f, &value)
	if err != nil {
		logger.Debug("read YAML path", slog.Any("error", err))
		return types.NullValue
	}

	return ConvertToCELValue(value)
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// ConvertToCELValue converts a decoded YAML value to a CEL value. Integers
// that do not fit an int64 become doubles, and unsupported types become null.
//
//nolint:ireturn // Following CEL's function signature.
func ConvertToCELValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return types.NullValue
	case bool:
		return types.Bool(v)
	case string:
		return types.String(v)
	case float32:
		return types.Double(float64(v))
	case float64:
		return types.Double(v)
	case time.Time:
		return types.Timestamp{Time: v}
	case int, int8, int16, int32, int64:
		return types.Int(reflect.ValueOf(v).Int())
	case uint, uint8, uint16, uint32, uint64:
		u := reflect.ValueOf(v).Uint()
		if u > math.MaxInt64 {
			return types.Double(float64(u))
		}

		return types.Int(int64(u))
	case []any:
		items := make([]ref.Val, 0, len(v))
		for _, item := range v {
			items = append(items, ConvertToCELValue(item))
		}

		return types.NewDynamicList(types.DefaultTypeAdapter, items)
	case map[string]any:
		return celMap(v, func(k string) ref.Val { return types.String(k) })
	case map[any]any:
		return celMap(v, ConvertToCELValue)
	}

	return types.NullValue
}

//nolint:ireturn // Following CEL's function signature.
func celMap[K comparable](m map[K]any, key func(K) ref.Val) ref.Val {
	out := make(map[ref.Val]ref.Val, len(m))
	for k, v := range m {
		out[key(k)] = ConvertToCELValue(v)
	}

	return types.NewDynamicMap(types.DefaultTypeAdapter, out)
}
