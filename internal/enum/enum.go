package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusReady      = "Ready"
	OrderStatusCompleted  = "Completed"
	OrderStatusCancelled  = "Cancelled"
)

const (
	ServiceStatusAvailable    = "Available"
	ServiceStatusNotAvailable = "Not Available"
)

// ── Group B: Account roles (JWT claims, not stored) ──

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// ── Group C: Staff stations (CHECK constrained in DB) ──

const (
	StaffRoleWash = "Wash"
	StaffRoleFold = "Fold"
	StaffRoleIron = "Iron"
)

// StaffRoleAdmin is rejected for staff members; admins are separate accounts.
const StaffRoleAdmin = "Admin"
