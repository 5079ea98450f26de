package formats

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
)

func TestCSV_Idempotent(t *testing.T) {
	cases := [][]dtos.Row{
		{{"a": "1", "b": "2"}},
		{{"name": "Smith, John", "note": `said "hi"`}, {"name": "plain", "extra": "only here"}},
		{{"multi": "line one\nline two", "z": ""}},
		{{"note": " "}},
		{{"note": "x"}, {"note": ""}, {"note": "y"}},
		{},
	}

	for i, rows := range cases {
		first, err := GenerateCSV(rows)
		require.NoError(t, err)

		parsed, err := ParseCSV(first)
		require.NoError(t, err, "case %d", i)

		second, err := GenerateCSV(parsed)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second), "case %d", i)
	}
}

func TestCSV_SingleColumnEmptyValues(t *testing.T) {
	out, err := GenerateCSV([]dtos.Row{{"note": "x"}, {"note": ""}})
	require.NoError(t, err)
	assert.Equal(t, "note\nx\n\"\"\n", string(out))

	rows, err := ParseCSV(out)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1]["note"])

	rows, err = ParseCSV([]byte("note\n\" \"\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, " ", rows[0]["note"])
}

func TestCSV_Quoting(t *testing.T) {
	out, err := GenerateCSV([]dtos.Row{{"desc": `Bolt, 3/8" zinc`, "sku": "B-1"}})
	require.NoError(t, err)
	assert.Equal(t, "desc,sku\n\"Bolt, 3/8\"\" zinc\",B-1\n", string(out))

	rows, err := ParseCSV(out)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, `Bolt, 3/8" zinc`, rows[0]["desc"])
}

func TestCSV_ShortRecordsAndErrors(t *testing.T) {
	rows, err := ParseCSV([]byte("po,item,qty\nPO-1,A\n\nPO-2,B,4\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0]["qty"])
	assert.Equal(t, "4", rows[1]["qty"])

	_, err = ParseCSV([]byte("a,b\n\"unterminated,1\n"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, constants.FormatCSV, pe.Format)

	rows, err = ParseCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXML_RoundTrip(t *testing.T) {
	rows := []dtos.Row{
		{"poNumber": "PO-1", "itemNumber": "A & B", "quantityOrdered": "5"},
		{"poNumber": "PO-1", "itemNumber": "<C>", "quantityOrdered": "7"},
	}

	out, err := GenerateXML(rows)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Document>")
	assert.Contains(t, string(out), "<Row>")

	parsed, err := ParseXML(out)
	require.NoError(t, err)
	assert.Equal(t, rows, parsed)
}

func TestXML_Errors(t *testing.T) {
	_, err := ParseXML([]byte("<Document><Row><a>1</Row>"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, constants.FormatXML, pe.Format)

	_, err = ParseXML([]byte("   "))
	assert.Error(t, err)
}

func TestJSON_Shapes(t *testing.T) {
	rows, err := ParseJSON([]byte(`[{"po":"PO-1","qty":10,"rush":true,"note":null}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dtos.Row{"po": "PO-1", "qty": "10", "rush": "true"}, rows[0])

	rows, err = ParseJSON([]byte(`{"rows":[{"a":"1"},{"a":"2"}]}`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = ParseJSON([]byte(`{"a":"1.50"}`))
	require.NoError(t, err)
	assert.Equal(t, "1.50", rows[0]["a"])

	_, err = ParseJSON([]byte(`[1,2]`))
	assert.Error(t, err)

	out, err := GenerateJSON(rows)
	require.NoError(t, err)
	again, err := ParseJSON(out)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestDetectAndSniff(t *testing.T) {
	assert.Equal(t, constants.FormatXML, DetectFormat("orders/PO1.XML"))
	assert.Equal(t, constants.FormatJSON, DetectFormat("po.json"))
	assert.Equal(t, constants.FormatX12, DetectFormat("in.edi"))
	assert.Equal(t, constants.FormatX12, DetectFormat("in.x12"))
	assert.Equal(t, constants.FormatCSV, DetectFormat("in.txt"))
	assert.Equal(t, constants.FormatCSV, DetectFormat("noext"))

	f, ok := SniffFormat([]byte("\n  ISA*00*"))
	assert.True(t, ok)
	assert.Equal(t, constants.FormatX12, f)

	f, ok = SniffFormat([]byte(`<?xml version="1.0"?>`))
	assert.True(t, ok)
	assert.Equal(t, constants.FormatXML, f)

	_, ok = SniffFormat([]byte(strings.Repeat("a,b\n", 2)))
	assert.False(t, ok)
}
