package logparse

import "github.com/tinytelemetry/logsift/internal/model"

// Document is a body tagged with the format it was sniffed as. The parser
// variant is chosen by the tag; there is no per-format parser object.
type Document struct {
	Format model.Format
	Body   []byte
}

// Parse counts the records of doc grouped by typ.
func Parse(doc Document, typ model.AnalysisType) model.CountTable {
	switch doc.Format {
	case model.FormatJSON:
		return ParseJSON(doc.Body, typ)
	case model.FormatXML:
		return ParseXML(string(doc.Body), typ)
	default:
		return ParseTXT(string(doc.Body), typ)
	}
}
