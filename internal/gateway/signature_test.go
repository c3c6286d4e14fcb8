package gateway

import "testing"

func TestComputeSignature_KnownVector(t *testing.T) {
	got := ComputeSignature("S", "order_1", "pay_1")
	want := "5a96f87c4443aa4ecc2f636377f33a4edc62292cd3559382bf6ec4464377ecb3"
	if got != want {
		t.Errorf("ComputeSignature = %q, want %q", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	valid := ComputeSignature("S", "order_1", "pay_1")

	tests := []struct {
		name      string
		secret    string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid", "S", "order_1", "pay_1", valid, true},
		{"wrong secret", "T", "order_1", "pay_1", valid, false},
		{"swapped ids", "S", "pay_1", "order_1", valid, false},
		{"other payment", "S", "order_1", "pay_2", valid, false},
		{"empty signature", "S", "order_1", "pay_1", "", false},
		{"uppercase hex", "S", "order_1", "pay_1", "5A96F87C4443AA4ECC2F636377F33A4EDC62292CD3559382BF6EC4464377ECB3", false},
		{"truncated", "S", "order_1", "pay_1", valid[:32], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, tt.orderID, tt.paymentID, tt.signature); got != tt.want {
				t.Errorf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}
