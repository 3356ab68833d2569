package sweep

import "fmt"

// ShapeError reports an invalid parameter set shape: an empty set or
// value sequences of unequal length. It aborts construction; a set that
// fails shape validation never exists.
type ShapeError struct {
	Set    string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("parameter set %q: %s", e.Set, e.Detail)
}

// NameCollisionError reports the same parameter name claimed by two
// owners, either two parameter sets or a parameter set and the fixed
// parameters of a run.
type NameCollisionError struct {
	Parameter string
	First     string
	Second    string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("parameter %q defined by both %s and %s", e.Parameter, e.First, e.Second)
}
