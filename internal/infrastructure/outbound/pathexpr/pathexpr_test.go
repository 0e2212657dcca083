package pathexpr_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/pathexpr"
)

const orderJSON = `{
  "id": "o-1",
  "total": 12.5,
  "paid": true,
  "customer": {"name": "Agenix", "tier": "gold"},
  "items": [
    {"sku": "a", "qty": 1, "price": 2.5},
    {"sku": "b", "qty": 4, "price": 10}
  ]
}`

func TestJSONPathEvaluator(t *testing.T) {
	e := pathexpr.NewJSONPathEvaluator(8)

	tests := []struct {
		expr      string
		want      any
		wantFound bool
	}{
		{"$.id", "o-1", true},
		{"$.total", 12.5, true},
		{"$.paid", true, true},
		{"$.customer.name", "Agenix", true},
		{"jsonPath:$.customer.tier", "gold", true},
		{"$.items[1].sku", "b", true},
		{"$.items[?(@.qty > 2)].sku", `["b"]`, true},
		{"$.customer", `{"name":"Agenix","tier":"gold"}`, true},
		{"$.missing", nil, false},
		{"$.items.size()", 2, true},
		{"$.customer.keySet()", []string{"name", "tier"}, true},
		{"$.customer.values()", []any{"Agenix", "gold"}, true},
		{"$.items[0].toString()", `{"price":2.5,"qty":1,"sku":"a"}`, true},
		{"$.missing.exists()", false, true},
		{"$.id.exists()", true, true},
		{"$.missing.size()", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, found, err := e.Evaluate(orderJSON, tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestJSONPathEvaluator_Errors(t *testing.T) {
	e := pathexpr.NewJSONPathEvaluator(8)

	if _, _, err := e.Evaluate(orderJSON, "$.items[?(@.qty >"); !errors.Is(err, failure.ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
	if _, _, err := e.Evaluate("<xml/>", "$.id"); !failure.IsValidation(err) {
		t.Errorf("expected validation error for non-JSON payload, got %v", err)
	}
}

const orderXML = `<?xml version="1.0"?>
<order id="o-1" xmlns:p="urn:payment">
  <customer>Agenix</customer>
  <items>
    <item sku="a">1</item>
    <item sku="b">4</item>
  </items>
  <p:status>PAID</p:status>
</order>`

func TestXPathEvaluator(t *testing.T) {
	e := pathexpr.NewXPathEvaluator(8, map[string]string{"pay": "urn:payment"})

	tests := []struct {
		expr      string
		want      any
		wantFound bool
	}{
		{"/order/customer", "Agenix", true},
		{"xpath:/order/@id", "o-1", true},
		{"//item[@sku='b']", "4", true},
		{"//item/@sku", []string{"a", "b"}, true},
		{"count(//item)", float64(2), true},
		{"string(/order/customer)", "Agenix", true},
		{"/order/pay:status", "PAID", true},
		{"/order/missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, found, err := e.Evaluate(orderXML, tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestXPathEvaluator_Errors(t *testing.T) {
	e := pathexpr.NewXPathEvaluator(8, nil)

	if _, _, err := e.Evaluate(orderXML, "//item["); !errors.Is(err, failure.ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
	if _, _, err := e.Evaluate("<order>", "/order"); !failure.IsValidation(err) {
		t.Errorf("expected validation error for malformed XML, got %v", err)
	}
}
