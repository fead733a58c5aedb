package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRoundDownToStep(t *testing.T) {
	got := RoundDownToStep(d("1.2345"), d("0.01"))
	if !got.Equal(d("1.23")) {
		t.Fatalf("got %s", got)
	}
}

func TestRoundUpToStep(t *testing.T) {
	got := RoundUpToStep(d("1.2301"), d("0.01"))
	if !got.Equal(d("1.24")) {
		t.Fatalf("got %s", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(d("5"), d("0"), d("3")); !got.Equal(d("3")) {
		t.Fatalf("got %s", got)
	}
	if got := Clamp(d("-1"), d("0"), d("3")); !got.Equal(d("0")) {
		t.Fatalf("got %s", got)
	}
	if got := Clamp(d("2"), d("0"), d("3")); !got.Equal(d("2")) {
		t.Fatalf("got %s", got)
	}
}
