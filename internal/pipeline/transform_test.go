package pipeline

import (
	"context"
	"testing"

	"covid-impact-pipeline/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedTransformations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trimSpaces", "  Peru \t", "Peru"},
		{"collapseSpaces", "United   Arab\tEmirates", "United Arab Emirates"},
		{"titleCase", "south africa", "South Africa"},
		{"stripFootnotes", "Germany*", "Germany"},
		{"stripFootnotes", "Kosovo [1]", "Kosovo"},
		{"stripFootnotes", "Serbia [a]*", "Serbia"},
		{"truncateWords:3", "Korea, Rep. of (South)", "Korea, Rep. of"},
		{"truncateWords:3", "Chile", "Chile"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.in, func(t *testing.T) {
			transforms, err := ParseTransformations([]string{tt.name}, nil, nil)
			require.NoError(t, err)

			got, keep := applyTransformations(tt.in, transforms)
			assert.True(t, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTransformationsErrors(t *testing.T) {
	tests := []struct {
		name   string
		errMsg string
	}{
		{"shout", "unknown transformation: shout"},
		{"truncateWords", "needs a word count"},
		{"truncateWords:0", "positive integer"},
		{"truncateWords:two", "positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransformations([]string{tt.name}, nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTransformEntities(t *testing.T) {
	table, err := LoadTable(context.Background(), config.SourceConfig{ID: "cpi", Path: "testdata/inflation.csv"})
	require.NoError(t, err)

	transforms, err := ParseTransformations(
		[]string{"trimSpaces", "stripFootnotes"},
		[]config.RenameConfig{{From: "France (metropolitan)", To: "France"}},
		[]string{"Atlantis"},
	)
	require.NoError(t, err)

	out, dropped, err := TransformEntities(table, "Country", transforms)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	var names []string
	for _, row := range out.Rows {
		names = append(names, row[0])
	}
	assert.Equal(t, []string{"France", "United States", "Germany"}, names)
	assert.Equal(t, "France (metropolitan)", table.Rows[0][0], "input table is not modified")

	_, _, err = TransformEntities(table, "Nation", transforms)
	assert.ErrorIs(t, err, ErrMalformedTable)
}
