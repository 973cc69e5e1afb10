package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedMatrix(t *testing.T) {
	cases := []struct {
		role   Role
		action string
		want   bool
	}{
		{RoleCustomer, CartManage, true},
		{RoleCustomer, OrderCheckout, true},
		{RoleCustomer, StockRecord, false},
		{RoleCustomer, DashboardStaff, false},
		{RoleStaff, StockRecord, true},
		{RoleStaff, StockView, true},
		{RoleStaff, CartManage, true},
		{RoleStaff, OrderCheckout, true},
		{RoleStaff, OrderViewOwn, true},
		{RoleStaff, DashboardCustomer, false},
		{RoleStaff, OrderManage, false},
		{RoleStaff, DashboardManager, false},
		{RoleManager, StockRecord, true},
		{RoleManager, OrderManage, true},
		{RoleManager, CatalogManage, true},
		{RoleManager, InventoryAudit, true},
		{RoleManager, CartManage, true},
		{RoleManager, OrderCheckout, true},
		{RoleManager, OrderViewOwn, true},
		{RoleManager, UsersManage, false},
		{RoleManager, DashboardAdmin, false},
		{RoleAdmin, UsersManage, true},
		{RoleAdmin, DashboardAdmin, true},
		{RoleAdmin, CartManage, true},
		{RoleAdmin, StockRecord, true},
		{Role("GUEST"), CartManage, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Allowed(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestAllowedNormalisesAction(t *testing.T) {
	require.True(t, Allowed(RoleStaff, "  Stock.Record "))
}

func TestAdminHoldsEveryCapability(t *testing.T) {
	for _, role := range Roles {
		for _, c := range Capabilities(role) {
			require.True(t, Allowed(RoleAdmin, c), c)
		}
	}
}

func TestParseRoleAndDashboard(t *testing.T) {
	role, ok := ParseRole(" manager ")
	require.True(t, ok)
	require.Equal(t, RoleManager, role)
	_, ok = ParseRole("root")
	require.False(t, ok)

	require.Equal(t, "admin", DashboardFor(RoleAdmin))
	require.Equal(t, "staff", DashboardFor(RoleStaff))
	require.Equal(t, "customer", DashboardFor(Role("")))
}
