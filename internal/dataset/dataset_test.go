package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVLoaderLoad(t *testing.T) {
	path := writeFile(t, "jobs.csv", strings.Join([]string{
		"title,company,location,description,salary",
		`Go Developer,Acme,Remote,"Build services in Go, with gRPC",120k`,
		"Data Engineer,Globex,Berlin,,95k",
		`Site Reliability Engineer,Initech,NYC,"Keep things ""up""",130k`,
	}, "\n"))

	listings, err := CSVLoader{}.Load(path)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, 0, listings[0].Row)
	assert.Equal(t, "Go Developer", listings[0].Title)
	assert.Equal(t, "Acme", listings[0].Company)
	assert.Equal(t, "Remote", listings[0].Location)
	assert.Equal(t, "Build services in Go, with gRPC", listings[0].Description)
	assert.Equal(t, map[string]string{"salary": "120k"}, listings[0].Extra)

	assert.Equal(t, 1, listings[1].Row)
	assert.Equal(t, "", listings[1].Description, "empty cells become empty strings")
	assert.Equal(t, `Keep things "up"`, listings[2].Description)
	assert.Equal(t, 2, listings[2].Row)
}

func TestCSVLoaderMissingFile(t *testing.T) {
	_, err := CSVLoader{}.Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    int
	}{
		{name: "case insensitive with bom", input: "\ufeffTitle, Company ,LOCATION,Description\nA,B,C,D\n", want: 1},
		{name: "reordered columns", input: "description,location,company,title\nD,C,B,A\n", want: 1},
		{name: "header only", input: "title,company,location,description\n", want: 0},
		{name: "missing description", input: "title,company,location\nA,B,C\n", wantErr: ErrMissingColumn},
		{name: "empty input", input: "", wantErr: ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, listings, tt.want)
		})
	}
}

func TestParseReorderedColumns(t *testing.T) {
	listings, err := Parse(strings.NewReader("description,location,company,title\nD,C,B,A\n"))
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "A", listings[0].Title)
	assert.Equal(t, "B", listings[0].Company)
	assert.Equal(t, "C", listings[0].Location)
	assert.Equal(t, "D", listings[0].Description)
	assert.Nil(t, listings[0].Extra)
}

func TestParseRaggedRow(t *testing.T) {
	_, err := Parse(strings.NewReader("title,company,location,description\nA,B,C\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read row 1")
}

func TestReadText(t *testing.T) {
	path := writeFile(t, "query.txt", "golang backend\nremote\n")
	got, err := ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "golang backend\nremote\n", got)

	_, err = ReadText(filepath.Join(t.TempDir(), "none.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}
