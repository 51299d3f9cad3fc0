package user

type Permission string

const (
	// Self Management
	PermissionViewOwnProfile Permission = "profile.view_own"

	// Tickets
	PermissionTicketCreate    Permission = "ticket.create"
	PermissionTicketViewOwn   Permission = "ticket.view_own"
	PermissionTicketCancelOwn Permission = "ticket.cancel_own"
	PermissionTicketViewAll   Permission = "ticket.view_all"
	PermissionTicketOperate   Permission = "ticket.operate"

	// Location & counter management
	PermissionLocationView   Permission = "location.view"
	PermissionLocationManage Permission = "location.manage"
	PermissionCounterManage  Permission = "counter.manage"
	PermissionStaffManage    Permission = "staff.manage"

	// Reports
	PermissionReportsView Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionViewOwnProfile,
		PermissionTicketCreate,
		PermissionTicketViewOwn,
		PermissionTicketCancelOwn,
		PermissionTicketViewAll,
		PermissionTicketOperate,
		PermissionLocationView,
		PermissionLocationManage,
		PermissionCounterManage,
		PermissionStaffManage,
		PermissionReportsView,
	},
	RoleOwner: {
		PermissionViewOwnProfile,
		PermissionTicketCreate,
		PermissionTicketViewAll,
		PermissionTicketOperate,
		PermissionLocationView,
		PermissionLocationManage,
		PermissionCounterManage,
		PermissionStaffManage,
		PermissionReportsView,
	},
	RoleStaff: {
		// Staff issue walk-in tickets and operate their location's queue
		PermissionViewOwnProfile,
		PermissionTicketCreate,
		PermissionTicketViewAll,
		PermissionTicketOperate,
		PermissionLocationView,
	},
	RoleVisitor: {
		PermissionViewOwnProfile,
		PermissionTicketCreate,
		PermissionTicketViewOwn,
		PermissionTicketCancelOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
