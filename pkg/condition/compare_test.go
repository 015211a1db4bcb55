package condition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/conductor/pkg/condition"
	"github.com/macropower/conductor/pkg/operator"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		value1    any
		comparand string
		noValue   bool
		op        operator.Kind
		want      bool
	}{
		"absent not equal":         {value1: nil, comparand: "x", op: operator.NotEqual, want: true},
		"absent equal":             {value1: nil, comparand: "x", op: operator.Equal, want: false},
		"presence":                 {value1: "md", noValue: true, op: operator.Equal, want: true},
		"absence":                  {value1: nil, noValue: true, op: operator.NotEqual, want: true},
		"starts with":              {value1: "Markdown", comparand: "mark", op: operator.StartsWith, want: true},
		"regex comparand":          {value1: "file.md", comparand: `/\.m(d|arkdown)$/`, op: operator.Contains, want: true},
		"invalid regex is literal": {value1: "a/(b/", comparand: "/(b/", op: operator.Contains, want: true},
		"literal metacharacters":   {value1: "a+b", comparand: "a+b", op: operator.Equal, want: true},
		"case insensitive equal":   {value1: "abc", comparand: "ABC", op: operator.Equal, want: true},
		"not equal":                {value1: "abc", comparand: "abd", op: operator.NotEqual, want: true},
		"not contains":             {value1: "abc", comparand: "b", op: operator.NotContains, want: false},
		"not starts with":          {value1: "abc", comparand: "z", op: operator.NotStartsWith, want: true},
		"not ends with":            {value1: "abc", comparand: "c", op: operator.NotEndsWith, want: false},
		"multiline anchors":        {value1: "one\ntwo", comparand: "/^two/", op: operator.Contains, want: true},
		"numeric gt":               {value1: "10", comparand: "9", op: operator.GreaterThan, want: true},
		"numeric eq":               {value1: uint64(3), comparand: "3.0", op: operator.Equal, want: true},
		"string gt":                {value1: "abc", comparand: "def", op: operator.GreaterThan, want: false},
		"bool":                     {value1: true, comparand: "yes", op: operator.Equal, want: true},
		"bool string":              {value1: "no", comparand: "true", op: operator.Equal, want: false},
		"bool negated":             {value1: "no", comparand: "true", op: operator.NotEqual, want: true},
		"bool non-bool comparand":  {value1: true, comparand: "maybe", op: operator.Equal, want: false},
		"list":                     {value1: []any{"a", "b"}, comparand: "a,b", op: operator.Equal, want: true},
		"list contains":            {value1: []any{"go", "yaml"}, comparand: "yaml", op: operator.Contains, want: true},
		"type integer":             {value1: uint64(5), comparand: "integer", op: operator.TypeOf, want: true},
		"type float":               {value1: 1.5, comparand: "float", op: operator.TypeOf, want: true},
		"type array":               {value1: []any{}, comparand: "array", op: operator.TypeOf, want: true},
		"type string":              {value1: "x", comparand: "string", op: operator.TypeOf, want: true},
		"type date":                {value1: "2024-01-01", comparand: "date", op: operator.TypeOf, want: true},
		"not type number":          {value1: "x", comparand: "number", op: operator.NotTypeOf, want: true},
		"date gt":                  {value1: "2024-05-02", comparand: "2024-05-01", op: operator.GreaterThan, want: true},
		"date gt same day":         {value1: "2024-05-01", comparand: "2024-05-01", op: operator.GreaterThan, want: false},
		"date lt":                  {value1: "2024-04-30", comparand: "2024-05-01", op: operator.LessThan, want: true},
		"date lt same day":         {value1: "2024-05-01", comparand: "2024-05-01", op: operator.LessThan, want: false},
		"date eq":                  {value1: "2024-05-01", comparand: "2024-05-01", op: operator.Equal, want: true},
		"date eq ignores time":     {value1: "2024-05-01 10:00", comparand: "2024-05-01", op: operator.Equal, want: true},
		"date ne":                  {value1: "2024-05-01", comparand: "2024-05-02", op: operator.NotEqual, want: true},
		"datetime gt":              {value1: "2024-05-01 10:00", comparand: "2024-05-01 9am", op: operator.GreaterThan, want: true},
		"datetime lt":              {value1: "2024-05-01 10:00", comparand: "2024-05-01 3:30 pm", op: operator.LessThan, want: true},
		"datetime eq minute":       {value1: "2024-05-01T15:30:42", comparand: "2024-05-01 15:30", op: operator.Equal, want: true},
		"datetime ne":              {value1: "2024-05-01 15:31", comparand: "2024-05-01 15:30", op: operator.NotEqual, want: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := condition.Compare(tc.value1, tc.comparand, !tc.noValue, tc.op)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSearchTree(t *testing.T) {
	t.Parallel()

	t.Run("found in ancestor", func(t *testing.T) {
		t.Parallel()

		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, "vault", ".obsidian"), 0o755))

		origin := filepath.Join(home, "vault", "a", "b", "c")
		require.NoError(t, os.MkdirAll(origin, 0o755))

		assert.True(t, condition.SearchTree(origin, ".obsidian", home))
	})

	t.Run("found in origin", func(t *testing.T) {
		t.Parallel()

		home := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(home, ".marker"), nil, 0o644))

		assert.True(t, condition.SearchTree(home, ".marker", home))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		home := t.TempDir()
		origin := filepath.Join(home, "a", "b", "c")
		require.NoError(t, os.MkdirAll(origin, 0o755))

		assert.False(t, condition.SearchTree(origin, ".obsidian-missing", home))
	})

	t.Run("stops at home", func(t *testing.T) {
		t.Parallel()

		outer := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(outer, ".obsidian"), 0o755))

		home := filepath.Join(outer, "home")
		origin := filepath.Join(home, "x", "y")
		require.NoError(t, os.MkdirAll(origin, 0o755))

		assert.False(t, condition.SearchTree(origin, ".obsidian", home))
	})
}
