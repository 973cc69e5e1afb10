package rbac

import (
	"slices"
	"strings"
)

var (
	// Every signed-in account may shop.
	shopperCaps  = []string{CartManage, OrderCheckout, OrderViewOwn}
	customerCaps = append(slices.Clone(shopperCaps), DashboardCustomer)
	staffCaps    = append(slices.Clone(shopperCaps), StockRecord, StockView, DashboardStaff)
	managerCaps  = append(slices.Clone(staffCaps),
		DashboardManager, OrderManage, CatalogManage, InventoryAudit, ReportsView)
	adminCaps = append(slices.Concat(customerCaps, managerCaps), UsersManage, DashboardAdmin)
)

var policy = map[Role]map[string]struct{}{
	RoleCustomer: toSet(customerCaps),
	RoleStaff:    toSet(staffCaps),
	RoleManager:  toSet(managerCaps),
	RoleAdmin:    toSet(adminCaps),
}

func toSet(caps []string) map[string]struct{} {
	set := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Allowed reports whether role may perform action. Unknown roles get nothing.
func Allowed(role Role, action string) bool {
	caps, ok := policy[role]
	if !ok {
		return false
	}
	_, ok = caps[strings.ToLower(strings.TrimSpace(action))]
	return ok
}

// Capabilities returns the sorted capability list of role.
func Capabilities(role Role) []string {
	caps := policy[role]
	out := make([]string, 0, len(caps))
	for c := range caps {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// DashboardFor returns the dashboard a role lands on.
func DashboardFor(role Role) string {
	switch role {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleStaff:
		return "staff"
	default:
		return "customer"
	}
}
