package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/diagnosis/bloodcare/internal/query"
)

var userColumns = map[string]string{
	query.FieldEmail:      "email",
	query.FieldRole:       "role",
	query.FieldBloodGroup: "blood_group",
	query.FieldDistrict:   "district",
	query.FieldUpazila:    "upazila",
	query.FieldCreatedAt:  "created_at",
}

var requestColumns = map[string]string{
	query.FieldRequesterEmail: "requester_email",
	query.FieldDonorEmail:     "donor_email",
	query.FieldDonationStatus: "donation_status",
	query.FieldBloodGroup:     "blood_group",
	query.FieldCreatedAt:      "created_at",
}

// toSQL renders pred as a WHERE/ORDER BY suffix with positional args.
// Inequality uses IS DISTINCT FROM so NULL columns still match, the same as
// a document store's $ne.
func toSQL(pred query.Predicate, columns map[string]string) (string, []any, error) {
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	for _, c := range pred.Clauses {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", c.Field)
		}
		args = append(args, c.Value)
		ph := "$" + strconv.Itoa(len(args))
		switch c.Op {
		case query.Eq:
			conds = append(conds, col+" = "+ph)
		case query.Ne:
			conds = append(conds, col+" IS DISTINCT FROM "+ph)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if pred.Sort != nil {
		col, ok := columns[pred.Sort.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown sort field %q", pred.Sort.Field)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(col)
		if pred.Sort.Desc {
			sb.WriteString(" DESC")
		}
	}
	return sb.String(), args, nil
}

// validID rejects identifiers that can never match a UUID key, so they read
// as "no such record" instead of a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
