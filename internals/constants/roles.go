package constants

import "fmt"

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

const RoleErrorDefault = "You are not allowed to access this resource."

const (
	ErrOnlySuperAdminCanAccess = "Only the super admin may access %s."
	ErrOnlyAdminsCanAccess     = "Only admins may access %s."
	ErrOnlyUsersCanAccess      = "Only field users may access %s."
)

func RoleErrorSuperAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlySuperAdminCanAccess, feature)
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorUser(feature string) string {
	return fmt.Sprintf(ErrOnlyUsersCanAccess, feature)
}

var (
	AllRoles = []string{
		RoleSuperAdmin,
		RoleAdmin,
		RoleUser,
	}

	TenantRoles = []string{
		RoleAdmin,
		RoleUser,
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
