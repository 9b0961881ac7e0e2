/*
facade.go - Role-filtered read side

PURPOSE:
  Read-only projection over Store.Query adding role-based visibility:
  administrators see all commissions; a representative sees only their
  own. The visibility rule is enforced HERE, not left to the caller:
  a representative filter supplied by a non-admin actor is overridden
  with the actor's own identity rather than trusted.

SEE ALSO:
  - store.go: QueryFilter semantics
  - settlement.go: Write-side authorization
*/
package commission

import "context"

// Facade is the query/reporting surface exposed to UI layers.
type Facade struct {
	Store Store
}

// Query returns commissions visible to the actor, applying the filter.
// Non-admin actors are always pinned to their own representative ID,
// regardless of what the filter asks for.
func (f *Facade) Query(ctx context.Context, actor Actor, filter QueryFilter) ([]Commission, error) {
	if !actor.Role.IsAdmin() {
		filter.RepresentativeID = actor.ID
	}
	return f.Store.Query(ctx, filter)
}

// Get returns a single commission if the actor may see it.
func (f *Facade) Get(ctx context.Context, actor Actor, id CommissionID) (Commission, error) {
	c, err := f.Store.Get(ctx, id)
	if err != nil {
		return Commission{}, err
	}
	if !actor.Role.IsAdmin() && actor.ID != c.RepresentativeID {
		// Deliberately indistinguishable from a missing record: a
		// representative must not learn that another's record exists.
		return Commission{}, ErrCommissionNotFound
	}
	return c, nil
}
