package entity

import (
	"fmt"
	"net/mail"
	"strings"
)

// FieldError is one violation found while validating an order request.
// Field uses the JSON name seen by the storefront (e.g. "endereco.cep",
// "items[0].quantity").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation in a request so the storefront
// can show them all at once instead of fixing one field per round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid order request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Validate checks the full order request shape and returns either nil or a
// *ValidationError carrying every violation.
func (r OrderRequest) Validate() error {
	verr := &ValidationError{}

	if len(r.Items) == 0 {
		verr.add("items", "at least one item is required")
	}
	for i, it := range r.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.ID == "" {
			verr.add(prefix+".id", "id is required")
		}
		if strings.TrimSpace(it.Name) == "" {
			verr.add(prefix+".name", "name is required")
		}
		if it.Quantity < 1 {
			verr.add(prefix+".quantity", "quantity must be a positive integer")
		}
		if it.UnitPrice != nil && !it.UnitPrice.Valid() {
			verr.add(prefix+".price", "price must be numeric")
		}
	}

	if strings.TrimSpace(r.Name) == "" {
		verr.add("nome", "customer name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		verr.add("email", "a valid email address is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		verr.add("telefone", "phone is required")
	}

	validateAddress(verr, r.Address)

	switch {
	case !r.Total.Set():
		verr.add("total", "total is required")
	case !r.Total.Valid():
		verr.add("total", "total must be numeric")
	case !r.Total.Positive():
		verr.add("total", "total must be greater than zero")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func validateAddress(verr *ValidationError, a ShippingAddress) {
	required := []struct {
		field string
		value string
	}{
		{"endereco.cep", a.PostalCode},
		{"endereco.logradouro", a.Street},
		{"endereco.numero", a.Number},
		{"endereco.bairro", a.Neighborhood},
		{"endereco.cidade", a.City},
		{"endereco.estado", a.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			verr.add(f.field, "field is required")
		}
	}
}
