package models

import "testing"

func TestHistoryEntry_Signed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry HistoryEntry
		want  int64
	}{
		{name: "charge", entry: HistoryEntry{Amount: 100, Type: TxnCharge}, want: 100},
		{name: "use", entry: HistoryEntry{Amount: 100, Type: TxnUse}, want: -100},
		{name: "zero_charge", entry: HistoryEntry{Amount: 0, Type: TxnCharge}, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.entry.Signed(); got != tt.want {
				t.Fatalf("signed: want %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParseTransactionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TransactionType
		wantErr bool
	}{
		{in: "CHARGE", want: TxnCharge},
		{in: " use ", want: TxnUse},
		{in: "refund", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTransactionType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: want %s, got %s", tt.in, tt.want, got)
		}
	}
}
