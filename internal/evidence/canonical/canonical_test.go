package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/models"
)

func request() *models.VerificationRequest {
	return &models.VerificationRequest{
		SessionID:         "4b7f3c1e-0000-4000-8000-000000000001",
		SubjectIdentifier: "0xabc",
		DocumentTypeID:    "pan",
		VerificationType:  models.VerificationAbove18,
		DIDID:             0,
		Fields: map[docmodels.FieldName]string{
			docmodels.FieldDocumentNumber: "ABCDE1234F",
			docmodels.FieldHolderName:     "JOHN DOE",
			docmodels.FieldDateOfBirth:    "15/08/1990",
		},
		RequestTime: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		RequestID:   "req-1",
		Nonce:       "n-1",
	}
}

func TestCanonicalizeIsSortedAndSkipsEmpty(t *testing.T) {
	req := request()
	req.Fields[docmodels.FieldSecondaryName] = ""

	got := string(Canonicalize(req))
	assert.Equal(t,
		"did_id:0|document_type_id:pan|field.date_of_birth:15/08/1990|field.document_number:ABCDE1234F|field.holder_name:JOHN DOE|subject_identifier:0xabc|verification_type:above18",
		got)
}

func TestCanonicalizeEscapesSeparators(t *testing.T) {
	req := request()
	req.SubjectIdentifier = `0x|a:b\c`
	req.Fields = map[docmodels.FieldName]string{}

	assert.Equal(t,
		`did_id:0|document_type_id:pan|subject_identifier:0x\|a\:b\\c|verification_type:above18`,
		string(Canonicalize(req)))
}

func TestEvidenceHashCannotBeForgedThroughValues(t *testing.T) {
	honest := request()
	honest.VerificationType = models.VerificationAbove18

	forged := request()
	forged.SubjectIdentifier = honest.SubjectIdentifier + "|verification_type:above18"
	forged.VerificationType = ""

	assert.NotEqual(t, EvidenceHash(honest), EvidenceHash(forged))
}

func TestEvidenceHashIgnoresVolatileFields(t *testing.T) {
	a := request()
	b := request()
	b.RequestTime = a.RequestTime.Add(time.Hour)
	b.RequestID = "req-2"
	b.Nonce = "n-2"
	b.SessionID = "other"
	b.EvidenceHash = "stale"

	assert.Equal(t, EvidenceHash(a), EvidenceHash(b))
}

func TestEvidenceHashIgnoresInsertionOrder(t *testing.T) {
	a := request()
	b := request()
	b.Fields = map[docmodels.FieldName]string{}
	b.Fields[docmodels.FieldDateOfBirth] = "15/08/1990"
	b.Fields[docmodels.FieldHolderName] = "JOHN DOE"
	b.Fields[docmodels.FieldDocumentNumber] = "ABCDE1234F"

	for range 20 {
		require.Equal(t, EvidenceHash(a), EvidenceHash(b))
	}
}

func TestEvidenceHashIsSensitiveToStableFields(t *testing.T) {
	base := EvidenceHash(request())

	mutations := map[string]func(*models.VerificationRequest){
		"document number": func(r *models.VerificationRequest) { r.Fields[docmodels.FieldDocumentNumber] = "ABCDE1234G" },
		"subject":         func(r *models.VerificationRequest) { r.SubjectIdentifier = "0xdef" },
		"type":            func(r *models.VerificationRequest) { r.VerificationType = models.VerificationCitizenship; r.DIDID = 1 },
		"added field":     func(r *models.VerificationRequest) { r.Fields[docmodels.FieldSecondaryName] = "RICHARD DOE" },
		"document type":   func(r *models.VerificationRequest) { r.DocumentTypeID = "aadhaar" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := request()
			mutate(req)
			assert.NotEqual(t, base, EvidenceHash(req))
		})
	}
}

func TestEvidenceHashFormat(t *testing.T) {
	h := EvidenceHash(request())
	assert.Len(t, h, 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, h)
}
