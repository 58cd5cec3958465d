// Package query builds the listing filters for donors and donation requests.
//
// A Predicate is a conjunction of clauses. Each store backend translates it
// into its own filter language. An omitted parameter adds no clause, so it
// never turns into a comparison against null.
package query

type Op string

const (
	Eq Op = "eq"
	Ne Op = "ne"
)

// Logical field names, shared by every backend.
const (
	FieldEmail          = "email"
	FieldRole           = "role"
	FieldBloodGroup     = "bloodGroup"
	FieldDistrict       = "district"
	FieldUpazila        = "upazila"
	FieldRequesterEmail = "requesterEmail"
	FieldDonorEmail     = "donorEmail"
	FieldDonationStatus = "donationStatus"
	FieldCreatedAt      = "createdAt"
)

type Clause struct {
	Field string
	Op    Op
	Value string
}

type Sort struct {
	Field string
	Desc  bool
}

type Predicate struct {
	Clauses []Clause
	Sort    *Sort
}

func (p Predicate) where(field string, op Op, value string) Predicate {
	p.Clauses = append(append([]Clause(nil), p.Clauses...), Clause{Field: field, Op: op, Value: value})
	return p
}

// Where adds an equality clause.
func (p Predicate) Where(field, value string) Predicate {
	return p.where(field, Eq, value)
}

// WhereNot adds an inequality clause.
func (p Predicate) WhereNot(field, value string) Predicate {
	return p.where(field, Ne, value)
}

// WhereIf adds an equality clause only when value is non-empty.
func (p Predicate) WhereIf(field, value string) Predicate {
	if value == "" {
		return p
	}
	return p.Where(field, value)
}

func (p Predicate) OrderBy(field string, desc bool) Predicate {
	p.Sort = &Sort{Field: field, Desc: desc}
	return p
}

// Lookup returns the first clause on field.
func (p Predicate) Lookup(field string) (Clause, bool) {
	for _, c := range p.Clauses {
		if c.Field == field {
			return c, true
		}
	}
	return Clause{}, false
}
