package domain

// WriteResult acknowledges a single-document write.
type WriteResult struct {
	Acknowledged  bool   `json:"acknowledged"`
	InsertedID    string `json:"insertedId,omitempty"`
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	DeletedCount  int64  `json:"deletedCount"`
}

func Inserted(id string) WriteResult {
	return WriteResult{Acknowledged: true, InsertedID: id}
}

func Updated(matched, modified int64) WriteResult {
	return WriteResult{Acknowledged: true, MatchedCount: matched, ModifiedCount: modified}
}

func Deleted(n int64) WriteResult {
	return WriteResult{Acknowledged: true, DeletedCount: n}
}
