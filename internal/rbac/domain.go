package rbac

import "strings"

// Role is the single role a user holds.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

// Roles lists every role from most to least privileged.
var Roles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleCustomer}

// ParseRole normalises a role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Capabilities checked by handlers.
const (
	CartManage        = "cart.manage"
	OrderCheckout     = "order.checkout"
	OrderViewOwn      = "order.view.own"
	OrderManage       = "order.manage"
	StockRecord       = "stock.record"
	StockView         = "stock.view"
	InventoryAudit    = "inventory.audit"
	CatalogManage     = "catalog.manage"
	ReportsView       = "reports.view"
	UsersManage       = "users.manage"
	DashboardCustomer = "dashboard.customer"
	DashboardStaff    = "dashboard.staff"
	DashboardManager  = "dashboard.manager"
	DashboardAdmin    = "dashboard.admin"
)
