// Package models holds the document extraction types shared by the imaging,
// OCR, extraction and KYC packages.
package models

import "image"

// DocumentTypePAN is the only supported document type.
const DocumentTypePAN = "pan"

// RawImage is an uploaded document or face image. It is never persisted.
type RawImage struct {
	Data     []byte
	MIMEType string
}

// FieldName identifies an extracted field.
type FieldName string

const (
	FieldDocumentNumber FieldName = "document_number"
	FieldHolderName     FieldName = "holder_name"
	FieldSecondaryName  FieldName = "secondary_name"
	FieldDateOfBirth    FieldName = "date_of_birth"
)

// Fields lists every field expected on a PAN card, in report order.
func Fields() []FieldName {
	return []FieldName{FieldDocumentNumber, FieldHolderName, FieldSecondaryName, FieldDateOfBirth}
}

// IsKnown reports whether f is one of Fields.
func (f FieldName) IsKnown() bool {
	switch f {
	case FieldDocumentNumber, FieldHolderName, FieldSecondaryName, FieldDateOfBirth:
		return true
	}
	return false
}

// StrategyID names the heuristic that resolved a field.
type StrategyID string

const (
	StrategyLabel    StrategyID = "label"
	StrategyRegex    StrategyID = "regex"
	StrategyScan     StrategyID = "scan"
	StrategyPosition StrategyID = "position"
	StrategyPattern  StrategyID = "pattern"
	StrategyDate     StrategyID = "date_pattern"
)

// ExtractedField is a resolved field. Valid is true for every field the
// extractor returns; it is carried so corrected and extracted values share
// one shape.
type ExtractedField struct {
	Name           FieldName  `json:"name"`
	Value          string     `json:"value"`
	Strategy       StrategyID `json:"strategy"`
	CandidateIndex int        `json:"candidate_index"`
	Valid          bool       `json:"is_valid"`
}

// PhotoRegion is the face photo cropped from the document.
type PhotoRegion struct {
	JPEG   []byte          `json:"jpeg,omitempty"`
	Bounds image.Rectangle `json:"bounds"`
	Found  bool            `json:"found"`
}

// Result is the outcome of one document extraction. A partial result is a
// success; SuccessRatio reports how much was resolved.
type Result struct {
	DocumentType   string                       `json:"document_type"`
	Fields         map[FieldName]ExtractedField `json:"fields"`
	Photo          *PhotoRegion                 `json:"photo,omitempty"`
	SuccessRatio   float64                      `json:"success_ratio"`
	RawText        string                       `json:"raw_text,omitempty"`
	CandidateCount int                          `json:"candidate_count"`
}

// Value returns the value of a resolved field, or "".
func (r *Result) Value(name FieldName) string {
	if r == nil {
		return ""
	}
	return r.Fields[name].Value
}
