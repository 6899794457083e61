// Package rbac decides what an identity may see and change.
//
// Every function here is pure and total: a nil identity or a role outside the
// closed set gets least privilege.
package rbac

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleLawyer Role = "LAWYER"
	RoleIntern Role = "INTERN"
)

// Identity is the subset of a profile the policy needs.
type Identity struct {
	ID   string
	Name string
	Role Role
}

// Assignable is anything carrying the id of the identity it is assigned to.
type Assignable interface {
	Assignee() string
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLawyer, RoleIntern:
		return true
	default:
		return false
	}
}

// Normalize maps a stored role string onto the closed set. Unknown values
// become the empty role, which every check below denies.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleLawyer, RoleIntern:
		return Role(role)
	default:
		return ""
	}
}

// CanEditGlobal governs creation of cases and contacts.
func CanEditGlobal(identity *Identity) bool {
	if identity == nil {
		return false
	}
	switch identity.Role {
	case RoleAdmin:
		return true
	case RoleLawyer, RoleIntern:
		return false
	default:
		return false
	}
}

// CanEditCase follows the admin-only reading of case write access.
func CanEditCase(identity *Identity) bool {
	return CanEditGlobal(identity)
}

func IsTaskVisible(identity *Identity, task Assignable) bool {
	if identity == nil || task == nil {
		return false
	}
	switch identity.Role {
	case RoleAdmin, RoleLawyer:
		return true
	case RoleIntern:
		return task.Assignee() == identity.ID
	default:
		return false
	}
}

// CanDragTask reports whether the identity may move the task to another day.
// Lawyers observe but never reschedule.
func CanDragTask(identity *Identity, task Assignable) bool {
	if identity == nil || task == nil {
		return false
	}
	switch identity.Role {
	case RoleAdmin:
		return true
	case RoleIntern:
		return task.Assignee() == identity.ID
	case RoleLawyer:
		return false
	default:
		return false
	}
}

// VisibleTasks filters tasks down to the ones the identity may see, keeping
// their order. The result is never nil.
func VisibleTasks[T Assignable](identity *Identity, tasks []T) []T {
	visible := make([]T, 0, len(tasks))
	for _, task := range tasks {
		if IsTaskVisible(identity, task) {
			visible = append(visible, task)
		}
	}
	return visible
}
