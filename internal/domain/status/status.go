// Package status holds the combined consistency view of the relational and vector stores.
package status

// DBCounts is the relational-store portion of a consistency report.
type DBCounts struct {
	Books int `json:"books"`
	Pages int `json:"pages"`
}

// VectorCount is the vector-store portion of a consistency report.
type VectorCount struct {
	Collection string `json:"collection"`
	Points     int    `json:"points"`
}

// Consistency is the result of one consistency probe.
// At most one of DBError and VectorError is set; when DBError is set the
// vector store was never queried.
type Consistency struct {
	OK          bool         `json:"ok"`
	DB          *DBCounts    `json:"db,omitempty"`
	Vector      *VectorCount `json:"vector,omitempty"`
	DBError     string       `json:"db_error,omitempty"`
	VectorError string       `json:"vector_error,omitempty"`
}

// OK reports both stores reachable with their counts.
func OK(db DBCounts, vector VectorCount) Consistency {
	return Consistency{OK: true, DB: &db, Vector: &vector}
}

// DBFailed reports a relational-store failure.
func DBFailed(err error) Consistency {
	return Consistency{DBError: err.Error()}
}

// VectorFailed reports a vector-store failure. Relational counts are not carried.
func VectorFailed(err error) Consistency {
	return Consistency{VectorError: err.Error()}
}
