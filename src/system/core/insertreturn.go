package core

// InsertReturn aggregates the outcome of an insert. A concrete insert
// touches at most one node; a glob insert fans out and may partially
// succeed, reporting every per-node error instead of rolling back.
type InsertReturn struct {
	NbrValuesInserted int
	NbrTasksInserted  int
	// Paths lists the concrete paths a slot was appended to, in fan-out order.
	Paths  []string
	Errors []Error
}

// NbrInserted is the total number of slots appended, values and tasks alike.
func (r InsertReturn) NbrInserted() int {
	return r.NbrValuesInserted + r.NbrTasksInserted
}

func (r InsertReturn) NbrErrors() int {
	return len(r.Errors)
}

// AddError appends err when it is a core.Error, wrapping anything else
// as UnknownError.
func (r *InsertReturn) AddError(err error) {
	if e, ok := err.(Error); ok {
		r.Errors = append(r.Errors, e)
		return
	}
	r.Errors = append(r.Errors, Error{Code: UnknownError, Message: err.Error()})
}

// Merge folds another InsertReturn into this one.
func (r *InsertReturn) Merge(other InsertReturn) {
	r.NbrValuesInserted += other.NbrValuesInserted
	r.NbrTasksInserted += other.NbrTasksInserted
	r.Paths = append(r.Paths, other.Paths...)
	r.Errors = append(r.Errors, other.Errors...)
}
