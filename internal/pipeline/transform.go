package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EntityTransform rewrites an entity name. Returning false drops the row.
type EntityTransform func(name string) (string, bool)

// ParseTransformations builds the entity transforms of a source: the named
// transformations in order, then the rename table, then the exclude list.
func ParseTransformations(names []string, rename []config.RenameConfig, exclude []string) ([]EntityTransform, error) {
	var out []EntityTransform
	for _, name := range names {
		t, err := namedTransformation(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if len(rename) > 0 {
		table := make(map[string]string, len(rename))
		for _, r := range rename {
			table[r.From] = r.To
		}
		out = append(out, renameEntities(table))
	}
	if len(exclude) > 0 {
		drop := make(map[string]bool, len(exclude))
		for _, e := range exclude {
			drop[e] = true
		}
		out = append(out, excludeEntities(drop))
	}
	return out, nil
}

// namedTransformation resolves "trimSpaces" or a parameterised name such
// as "truncateWords:3".
func namedTransformation(name string) (EntityTransform, error) {
	base, arg, hasArg := strings.Cut(name, ":")
	switch base {
	case "trimSpaces":
		return trimSpaces, nil
	case "collapseSpaces":
		return collapseSpaces, nil
	case "titleCase":
		return titleCase(), nil
	case "stripFootnotes":
		return stripFootnotes, nil
	case "truncateWords":
		if !hasArg {
			return nil, fmt.Errorf("transformation truncateWords needs a word count, e.g. truncateWords:3")
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("transformation %s: word count must be a positive integer", name)
		}
		return truncateWords(n), nil
	default:
		return nil, fmt.Errorf("unknown transformation: %s", name)
	}
}

// trimSpaces trims surrounding whitespace
func trimSpaces(name string) (string, bool) {
	return strings.TrimSpace(name), true
}

// collapseSpaces replaces every whitespace run with a single space
func collapseSpaces(name string) (string, bool) {
	return strings.Join(strings.Fields(name), " "), true
}

// titleCase upper-cases the first letter of each word
func titleCase() EntityTransform {
	caser := cases.Title(language.English)
	return func(name string) (string, bool) {
		return caser.String(name), true
	}
}

// stripFootnotes removes trailing footnote markers such as "*" or "[1]"
func stripFootnotes(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for {
		trimmed := strings.TrimRight(name, "*† ")
		if i := strings.LastIndex(trimmed, "["); i > 0 && strings.HasSuffix(trimmed, "]") {
			trimmed = strings.TrimSpace(trimmed[:i])
		}
		if trimmed == name {
			return name, true
		}
		name = trimmed
	}
}

// truncateWords keeps the first n space-separated words
func truncateWords(n int) EntityTransform {
	return func(name string) (string, bool) {
		words := strings.Fields(name)
		if len(words) <= n {
			return name, true
		}
		return strings.Join(words[:n], " "), true
	}
}

func renameEntities(table map[string]string) EntityTransform {
	return func(name string) (string, bool) {
		if to, ok := table[name]; ok {
			return to, true
		}
		return name, true
	}
}

func excludeEntities(drop map[string]bool) EntityTransform {
	return func(name string) (string, bool) {
		return name, !drop[name]
	}
}

// applyTransformations runs every transform on a name.
func applyTransformations(name string, transforms []EntityTransform) (string, bool) {
	for _, t := range transforms {
		var keep bool
		if name, keep = t(name); !keep {
			return "", false
		}
	}
	return name, true
}

// TransformEntities returns a copy of table with the entity column rewritten
// and excluded rows removed, plus the number of rows dropped.
func TransformEntities(table *model.RawTable, column string, transforms []EntityTransform) (*model.RawTable, int, error) {
	if len(transforms) == 0 {
		return table, 0, nil
	}
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, 0, sourceErr(table.Source, ErrMalformedTable, "entity column %q not found", column)
	}

	out := &model.RawTable{
		Source:  table.Source,
		Columns: append([]string(nil), table.Columns...),
		Rows:    make([][]string, 0, len(table.Rows)),
	}
	dropped := 0
	for _, row := range table.Rows {
		name, keep := applyTransformations(row[idx], transforms)
		if !keep {
			dropped++
			continue
		}
		cp := append([]string(nil), row...)
		cp[idx] = name
		out.Rows = append(out.Rows, cp)
	}
	return out, dropped, nil
}
