package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Name", "Mode")
	table.AddRow("notes", "encrypted")
	table.AddRow("log", "plain")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "MODE")
	assert.Contains(t, out, "notes")
	assert.Contains(t, out, "encrypted")
	assert.Contains(t, out, "log")
}

func TestAddRowPadsMissingCells(t *testing.T) {
	table := NewTableData("Name", "Mode", "Path")
	table.AddRow("notes")

	assert.Equal(t, [][]string{{"notes", None, None}}, table.Rows())
}

func TestCells(t *testing.T) {
	assert.Equal(t, "plain", Mode("plain", ""))
	assert.Equal(t, "compressed (zstd)", Mode("compressed", "zstd"))

	assert.Equal(t, "yes", YesNo(true))
	assert.Equal(t, "no", YesNo(false))

	assert.Equal(t, "missing", Size(1024, true, true))
	assert.Equal(t, "1.5 kB", Size(1500, false, false))
	assert.Equal(t, "1.5 kB (1,500 bytes)", Size(1500, false, true))

	assert.Equal(t, None, Age(nil))
	assert.Equal(t, None, Age(&time.Time{}))
	past := time.Now().Add(-3 * time.Hour)
	assert.Equal(t, "3 hours ago", Age(&past))

	assert.Equal(t, None, Hash(""))
	assert.Equal(t, "ab12", Hash("AB12"))
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, KeyValue{{"Path", "vault/notes.txt"}, {"Hashed", "yes"}}))

	out := buf.String()
	assert.Contains(t, out, "Path")
	assert.Contains(t, out, "vault/notes.txt")
	assert.Contains(t, out, "Hashed")
}

func TestPrintFormats(t *testing.T) {
	data := map[string]any{"name": "notes", "size": 5}
	table := NewTableData("Name")
	table.AddRow("notes")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, data, table))
	assert.JSONEq(t, `{"name":"notes","size":5}`, buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, FormatYAML, data, table))
	assert.Equal(t, "name: notes\nsize: 5\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, FormatTable, data, table))
	assert.Contains(t, buf.String(), "NAME")

	assert.Error(t, Print(&buf, Format("xml"), data, table))
}
