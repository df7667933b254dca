package rbac

// Role names. Keep these stable; the identity service mints them.
const (
	RoleSalesRep      = "sales_rep"
	RoleCenterManager = "center_manager"
	RoleRegionManager = "region_manager"
	RoleOrgAdmin      = "org_admin"
	RoleSuperAdmin    = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// CanRecord reports whether role may capture calls of its own.
func CanRecord(role string) bool {
	switch role {
	case RoleSalesRep, RoleCenterManager, RoleRegionManager, RoleOrgAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
