package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleReq struct {
	ProductID string  `validate:"required,hex32"`
	Amount    float64 `validate:"required,gte=1,dec2"`
	Currency  string  `validate:"required,oneof=IDR USD"`
	URL       string  `validate:"omitempty,url"`
}

func validSample() sampleReq {
	return sampleReq{
		ProductID: strings.Repeat("a", 32),
		Amount:    100000000.25,
		Currency:  "IDR",
		URL:       "https://docs.example.com/contract.pdf",
	}
}

func TestValidator_Hex32(t *testing.T) {
	cv := NewValidator()

	require.NoError(t, cv.Validate(validSample()))

	// too short, too long, uppercase, non-hex
	bad := []string{
		strings.Repeat("a", 31),
		strings.Repeat("a", 33),
		strings.ToUpper(strings.Repeat("a", 32)),
		strings.Repeat("z", 32),
	}
	for _, id := range bad {
		r := validSample()
		r.ProductID = id
		assert.Error(t, cv.Validate(r), "hex32 should reject %q", id)
	}
}

func TestValidator_Dec2(t *testing.T) {
	cv := NewValidator()

	for _, amt := range []float64{100, 100.5, 100.25} {
		r := validSample()
		r.Amount = amt
		assert.NoError(t, cv.Validate(r), "dec2 should accept %v", amt)
	}

	r := validSample()
	r.Amount = 100.253
	assert.Error(t, cv.Validate(r), "dec2 should reject 3 decimal places")
}

func TestToFieldErrors(t *testing.T) {
	cv := NewValidator()

	err := cv.Validate(sampleReq{
		ProductID: "nope",
		Amount:    100.123,
		Currency:  "EUR",
		URL:       "not a url",
	})
	require.Error(t, err)

	fields := ToFieldErrors(err)
	byField := make(map[string]string, len(fields))
	for _, f := range fields {
		byField[f.Field] = f.Message
	}

	assert.Equal(t, "must be 32-char lowercase hex", byField["ProductID"])
	assert.Equal(t, "must have at most 2 decimal places", byField["Amount"])
	assert.Equal(t, "must be one of: IDR USD", byField["Currency"])
	assert.Equal(t, "must be a valid URL", byField["URL"])
}

func TestToFieldErrors_Required(t *testing.T) {
	cv := NewValidator()

	err := cv.Validate(sampleReq{})
	require.Error(t, err)

	fields := ToFieldErrors(err)
	require.NotEmpty(t, fields)
	for _, f := range fields {
		if f.Field == "ProductID" {
			assert.Equal(t, "is required", f.Message)
			return
		}
	}
	t.Fatal("no required error reported for ProductID")
}

func TestToFieldErrors_NonValidatorError(t *testing.T) {
	fields := ToFieldErrors(errors.New("json: cannot unmarshal"))
	require.Len(t, fields, 1)
	assert.Equal(t, "_", fields[0].Field)
	assert.Contains(t, fields[0].Message, "cannot unmarshal")
}
