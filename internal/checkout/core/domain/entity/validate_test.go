package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validRequestJSON() string {
	return `{
		"items": [{"id": 1, "name": "X", "price": 10, "quantity": 2}],
		"nome": "Maria Silva",
		"email": "maria@example.com",
		"telefone": "+55 11 99999-0000",
		"endereco": {
			"cep": "01310-100",
			"logradouro": "Av. Paulista",
			"numero": "1000",
			"bairro": "Bela Vista",
			"cidade": "Sao Paulo",
			"estado": "SP"
		},
		"total": 20
	}`
}

func decodeRequest(t *testing.T, raw string) OrderRequest {
	t.Helper()
	var req OrderRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return req
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	req := decodeRequest(t, validRequestJSON())
	require.NoError(t, req.Validate())
	require.True(t, req.Total.Positive())
	require.Equal(t, "20", req.Total.Decimal().String())
}

func TestValidateCoercesStringNumbers(t *testing.T) {
	req := decodeRequest(t, `{
		"items": [{"id": "sku-7", "name": "X", "price": "10.50", "quantity": 1}],
		"nome": "Maria", "email": "maria@example.com", "telefone": "11 99999-0000",
		"endereco": {"cep": "01310-100", "logradouro": "Av. Paulista", "numero": "1000",
			"bairro": "Bela Vista", "cidade": "Sao Paulo", "estado": "SP"},
		"total": "10.50"
	}`)

	require.NoError(t, req.Validate())
	require.Equal(t, "sku-7", string(req.Items[0].ID))
	require.True(t, req.Total.Decimal().Equal(decimal.RequireFromString("10.50")))
}

func TestValidateRejectsNonNumericTotal(t *testing.T) {
	req := decodeRequest(t, validRequestJSON())
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &req.Total))

	err := req.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []FieldError{{Field: "total", Message: "total must be numeric"}}, verr.Fields)
}

func TestValidateRejectsNonPositiveTotal(t *testing.T) {
	for _, raw := range []string{`0`, `-5`, `"0.00"`} {
		req := decodeRequest(t, validRequestJSON())
		require.NoError(t, json.Unmarshal([]byte(raw), &req.Total))
		require.Error(t, req.Validate(), "total %s should be rejected", raw)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	req := decodeRequest(t, `{
		"items": [{"id": "", "name": "", "quantity": 0}],
		"nome": "",
		"email": "not-an-email",
		"telefone": "",
		"endereco": {},
		"total": null
	}`)

	err := req.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		fields[i] = f.Field
	}
	require.Contains(t, fields, "items[0].id")
	require.Contains(t, fields, "items[0].name")
	require.Contains(t, fields, "items[0].quantity")
	require.Contains(t, fields, "nome")
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "telefone")
	require.Contains(t, fields, "endereco.cep")
	require.Contains(t, fields, "endereco.estado")
	require.Contains(t, fields, "total")
}

func TestFlexIDAcceptsStringOrNumber(t *testing.T) {
	var item CartItem
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "name": "X", "quantity": 1}`), &item))
	require.Equal(t, FlexID("42"), item.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc", "name": "X", "quantity": 1}`), &item))
	require.Equal(t, FlexID("abc"), item.ID)
}

func TestMetadataRoundTrip(t *testing.T) {
	req := decodeRequest(t, validRequestJSON())
	md := MetadataFromRequest(req)
	require.NoError(t, md.Validate())

	raw, err := json.Marshal(md)
	require.NoError(t, err)

	var back IntentMetadata
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NoError(t, back.Validate())
	require.Equal(t, md, back)
	require.Equal(t, "1", back.Items[0].ID)
	require.Equal(t, "10", back.Items[0].UnitPrice)
	require.Equal(t, "maria@example.com", back.Customer.Email)
}

func TestMetadataValidateRejectsEmptyItems(t *testing.T) {
	md := IntentMetadata{Customer: CustomerInfo{Email: "a@b.com"}}
	require.Error(t, md.Validate())

	md.Items = []MetadataItem{{ID: "1", Quantity: 0}}
	require.Error(t, md.Validate())
}
