package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

func strPtr(s string) *string { return &s }

func TestNewMapper_RejectsUnknownTransform(t *testing.T) {
	_, err := NewMapper([]gormModels.EdiFieldMapping{
		{SourceField: "PO", TargetField: "poNumber", Transform: "reverse"},
	})
	assert.Error(t, err)

	_, err = NewMapper([]gormModels.EdiFieldMapping{{SourceField: "PO"}})
	assert.Error(t, err)
}

func TestMapper_ForwardTransforms(t *testing.T) {
	m, err := NewMapper([]gormModels.EdiFieldMapping{
		{SourceField: "PO Number", TargetField: "poNumber", Transform: "trim"},
		{SourceField: "Cust", TargetField: "customerNumber", Transform: "uppercase"},
		{SourceField: "Qty", TargetField: "quantityOrdered", Transform: "number"},
		{SourceField: "Price", TargetField: "unitPrice", Transform: "number"},
		{SourceField: "Date", TargetField: "poDate", Transform: "date"},
		{SourceField: "Rush", TargetField: "rush", Transform: "boolean"},
		{SourceField: "UOM", TargetField: "unitOfMeasure", DefaultValue: strPtr("EA")},
		{SourceField: "Memo", TargetField: "memo"},
	})
	require.NoError(t, err)

	out := m.Apply(dtos.Row{
		"PO Number": "  PO-1 ",
		"Cust":      "acme",
		"Qty":       "1,200",
		"Price":     "abc",
		"Date":      "2024-03-05T10:11:12Z",
		"Rush":      "Yes",
		"Ignored":   "x",
	})

	assert.Equal(t, dtos.Row{
		"poNumber":        "PO-1",
		"customerNumber":  "ACME",
		"quantityOrdered": "1200",
		"unitPrice":       "0",
		"poDate":          "2024-03-05",
		"rush":            "true",
		"unitOfMeasure":   "EA",
	}, out)
}

func TestMapper_ReverseRestoresNames(t *testing.T) {
	m := NewMapperFromRules(
		Rule{SourceField: "PONUM", TargetField: "poNumber", Transform: TransformTrim},
		Rule{SourceField: "BUYER", TargetField: "customerNumber", Transform: TransformUpper},
		Rule{SourceField: "email", TargetField: "contactEmail", Transform: TransformLower},
		Rule{SourceField: "QTY", TargetField: "quantityOrdered", Transform: TransformToNumber},
	)

	partner := dtos.Row{"PONUM": "PO-9", "BUYER": "ACME", "email": "ops@acme.test", "QTY": "12"}
	canonical := m.Apply(partner)
	back := m.Reverse(canonical)

	assert.Equal(t, partner, back)
}

func TestMapper_ReverseSkipsOneWayTransforms(t *testing.T) {
	m := NewMapperFromRules(
		Rule{SourceField: "Rush", TargetField: "rush", Transform: TransformToBoolean},
		Rule{SourceField: "Ship", TargetField: "shipDate", Transform: TransformToDate},
		Rule{SourceField: "Terms", TargetField: "terms", DefaultValue: strPtr("NET30")},
	)

	out := m.Reverse(dtos.Row{"rush": "maybe", "shipDate": "05/06/2024"})
	assert.Equal(t, "maybe", out["Rush"])
	assert.Equal(t, "05/06/2024", out["Ship"])
	assert.Equal(t, "NET30", out["Terms"])
}

func TestMapper_NoRulesPassesThrough(t *testing.T) {
	m, err := NewMapper(nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())

	in := dtos.Row{"a": "1"}
	out := m.Apply(in)
	assert.Equal(t, in, out)
	out["a"] = "2"
	assert.Equal(t, "1", in["a"])
}

func TestTransform_Apply(t *testing.T) {
	assert.Equal(t, "2024-05-06", TransformToDate.Apply("05/06/2024"))
	assert.Equal(t, "2024-05-06", TransformToDate.Apply("20240506"))
	assert.Equal(t, "not a date", TransformToDate.Apply("not a date"))
	assert.Equal(t, "false", TransformToBoolean.Apply("no"))
	assert.Equal(t, "true", TransformToBoolean.Apply("Y"))
	assert.Equal(t, "12.5", TransformToNumber.Apply(" 12.50 "))

	tr, err := ParseTransform("Upper")
	require.NoError(t, err)
	assert.Equal(t, TransformUpper, tr)
	assert.Equal(t, "uppercase", tr.String())
}
