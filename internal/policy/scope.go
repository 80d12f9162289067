package policy

import "github.com/primeapparel/marketplace-backend/internal/app/model"

// LeadScope is the slice of leads a role can see.
type LeadScope int

const (
	LeadScopeNone LeadScope = iota
	LeadScopeAssigned
	LeadScopeAll
)

func LeadVisibility(role model.Role) LeadScope {
	switch role {
	case model.RoleAdmin:
		return LeadScopeAll
	case model.RoleSeller:
		return LeadScopeAssigned
	case model.RoleBuyer:
		return LeadScopeNone
	default:
		return LeadScopeNone
	}
}

// LeadAssignment says which lead field is stamped with the creator.
type LeadAssignment int

const (
	AssignNobody LeadAssignment = iota
	AssignRequester
	AssignHandler
)

func LeadCreatorAssignment(role model.Role) LeadAssignment {
	switch role {
	case model.RoleBuyer:
		return AssignRequester
	case model.RoleSeller:
		return AssignHandler
	case model.RoleAdmin:
		return AssignNobody
	default:
		return AssignNobody
	}
}

// CanManageAnyProduct is true for roles that bypass the product owner check.
func CanManageAnyProduct(role model.Role) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleSeller, model.RoleBuyer:
		return false
	default:
		return false
	}
}

// CanFilterByOwner gates the ?owner= product list filter.
func CanFilterByOwner(role model.Role) bool {
	return CanManageAnyProduct(role)
}
