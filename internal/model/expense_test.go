package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestAmountJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		out     string
		wantErr bool
	}{
		{in: `42.50`, want: 4250, out: `42.50`},
		{in: `42.5`, want: 4250, out: `42.50`},
		{in: `"12.34"`, want: 1234, out: `12.34`},
		{in: `0`, want: 0, out: `0.00`},
		{in: `0.07`, want: 7, out: `0.07`},
		{in: `19.999`, want: 2000, out: `20.00`},
		{in: `1e2`, want: 10000, out: `100.00`},
		{in: `-1`, wantErr: true},
		{in: `"abc"`, wantErr: true},
		{in: `true`, wantErr: true},
		{in: `1e300`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.in), &a)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("Unmarshal(%s) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) unexpected error: %v", tt.in, err)
			}
			if a != tt.want {
				t.Errorf("Unmarshal(%s) = %d cents, want %d", tt.in, a, tt.want)
			}

			out, err := json.Marshal(a)
			if err != nil {
				t.Fatalf("Marshal() unexpected error: %v", err)
			}
			if string(out) != tt.out {
				t.Errorf("Marshal() = %s, want %s", out, tt.out)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-01-15"`), &d); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !d.Equal(want) {
		t.Errorf("date = %v, want %v", d.Time, want)
	}

	if err := json.Unmarshal([]byte(`"2024-01-15T10:30:00+02:00"`), &d); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if d.Hour() != 8 || d.Location() != time.UTC {
		t.Errorf("date = %v, want 08:30 UTC", d.Time)
	}

	for in, want := range map[string]time.Time{
		`"2024-01-15T10:00:00"`:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		`"2024-01-15T10:00:00.250"`: time.Date(2024, 1, 15, 10, 0, 0, 250e6, time.UTC),
		`"2024-01-15T10:00"`:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	} {
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Errorf("Unmarshal(%s) unexpected error: %v", in, err)
			continue
		}
		if !d.Equal(want) || d.Location() != time.UTC {
			t.Errorf("Unmarshal(%s) = %v, want %v", in, d.Time, want)
		}
	}

	for _, in := range []string{`"15/01/2024"`, `20240115`, `""`, `"2024-01-15 10:00"`} {
		if err := json.Unmarshal([]byte(in), &d); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Unmarshal(%s) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestUpdateRequestNullIsUndefined(t *testing.T) {
	var req UpdateExpenseRequest
	if err := json.Unmarshal([]byte(`{"amount": null, "notes": "paid cash"}`), &req); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if req.Amount != nil {
		t.Error("null amount should decode as undefined")
	}
	if req.Notes == nil || *req.Notes != "paid cash" {
		t.Errorf("notes = %v, want %q", req.Notes, "paid cash")
	}
}

func TestExpensePatchApply(t *testing.T) {
	e := Expense{Description: "Lunch", Amount: 1000, Category: "Food", Notes: "team"}
	category := "Travel"
	amount := Amount(2500)

	patch := ExpensePatch{Category: &category, Amount: &amount}
	if patch.IsEmpty() {
		t.Fatal("patch with fields reported empty")
	}
	patch.Apply(&e)

	if e.Category != "Travel" || e.Amount != 2500 {
		t.Errorf("patched fields not applied: %+v", e)
	}
	if e.Description != "Lunch" || e.Notes != "team" {
		t.Errorf("omitted fields changed: %+v", e)
	}
	if !(ExpensePatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestNormalizeEmailAndName(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}

	name, ok := NormalizeName("  Alice  ")
	if name != "Alice" || !ok {
		t.Errorf("NormalizeName() = (%q, %v)", name, ok)
	}

	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'é'
	}
	if _, ok := NormalizeName(string(long)); ok {
		t.Error("NormalizeName() accepted a name over the limit")
	}
}
