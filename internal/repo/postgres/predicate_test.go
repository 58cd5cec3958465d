package postgres

import (
	"testing"

	"github.com/diagnosis/bloodcare/internal/query"
)

func TestToSQL_DonorSearch(t *testing.T) {
	pred := query.Donors(query.DonorParams{Blood: "B+", District: "Sylhet", CurrentUser: "me@x.com"})

	got, args, err := toSQL(pred, userColumns)
	if err != nil {
		t.Fatalf("toSQL: %v", err)
	}
	want := ` WHERE blood_group = $1 AND district = $2 AND email IS DISTINCT FROM $3 AND role = $4`
	if got != want {
		t.Fatalf("sql mismatch\n got: %q\nwant: %q", got, want)
	}
	if len(args) != 4 || args[0] != "B+" || args[2] != "me@x.com" || args[3] != "donor" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestToSQL_CombinedRequestFilterIsSorted(t *testing.T) {
	pred := query.Requests(query.RequestParams{Email: "a@x.com", StatusFilter: "pending"})

	got, _, err := toSQL(pred, requestColumns)
	if err != nil {
		t.Fatalf("toSQL: %v", err)
	}
	want := ` WHERE requester_email = $1 AND donation_status = $2 ORDER BY created_at DESC`
	if got != want {
		t.Fatalf("sql mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestToSQL_EmptyPredicate(t *testing.T) {
	got, args, err := toSQL(query.Requests(query.RequestParams{}), requestColumns)
	if err != nil {
		t.Fatalf("toSQL: %v", err)
	}
	if got != "" || len(args) != 0 {
		t.Fatalf("expected no filter, got %q %v", got, args)
	}
}

func TestToSQL_UnknownField(t *testing.T) {
	pred := query.Predicate{}.Where("password", "x")
	if _, _, err := toSQL(pred, userColumns); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestValidID(t *testing.T) {
	if validID("not-a-uuid") {
		t.Fatalf("expected invalid id")
	}
	if !validID("5b0c1a1e-8f0e-4c53-9d8e-2f1f2b7f9a10") {
		t.Fatalf("expected valid id")
	}
}
