package formats

import (
	"errors"
	"strings"

	"github.com/beevik/etree"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
)

const (
	xmlRootTag = "Document"
	xmlRowTag  = "Row"
)

// ParseXML reads <Document><Row><Field>value</Field>...</Row>...</Document>.
// The root and row element names are not enforced; attributes are ignored.
func ParseXML(content []byte) ([]dtos.Row, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, &ParseError{Format: constants.FormatXML, Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Format: constants.FormatXML, Err: errors.New("document has no root element")}
	}

	var rows []dtos.Row
	for _, rowEl := range root.ChildElements() {
		fields := rowEl.ChildElements()
		if len(fields) == 0 {
			continue
		}
		row := make(dtos.Row, len(fields))
		for _, f := range fields {
			row[f.Tag] = strings.TrimSpace(f.Text())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GenerateXML writes rows as a flat document with fields in sorted order
func GenerateXML(rows []dtos.Row) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(xmlRootTag)
	for _, row := range rows {
		rowEl := root.CreateElement(xmlRowTag)
		for _, k := range row.Keys() {
			rowEl.CreateElement(xmlName(k)).SetText(row[k])
		}
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

// xmlName replaces characters that are not valid in an element name
func xmlName(s string) string {
	var b strings.Builder
	for i, r := range s {
		valid := r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
		if i > 0 {
			valid = valid || r == '-' || r == '.' || r >= '0' && r <= '9'
		}
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
