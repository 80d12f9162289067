// Package policy holds the role-based access rules shared by the HTTP
// middleware and the services. Coarse allow/deny decisions come from a
// casbin ACL; record scoping (which leads a seller sees, who gets assigned
// a new lead) is expressed as exhaustive switches over model.Role.
package policy

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
)

type Resource string

const (
	ResourceLead    Resource = "lead"
	ResourceProduct Resource = "product"
	ResourceUser    Resource = "user"
)

type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionMine   Action = "mine"
	ActionUpload Action = "upload"
	ActionNotify Action = "notify"
)

// SubjectAnonymous is the casbin subject for unauthenticated callers.
const SubjectAnonymous = "ANONYMOUS"

const aclModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Rules is the full allow list. Anything not listed is denied.
var Rules = [][]string{
	// leads
	{"ADMIN", "lead", "list"}, {"ADMIN", "lead", "read"}, {"ADMIN", "lead", "create"},
	{"ADMIN", "lead", "update"}, {"ADMIN", "lead", "delete"}, {"ADMIN", "lead", "mine"},
	{"SELLER", "lead", "list"}, {"SELLER", "lead", "read"}, {"SELLER", "lead", "create"},
	{"SELLER", "lead", "update"}, {"SELLER", "lead", "mine"},
	{"BUYER", "lead", "list"}, {"BUYER", "lead", "read"}, {"BUYER", "lead", "create"},
	{"BUYER", "lead", "mine"},

	// products
	{"ANONYMOUS", "product", "list"}, {"ANONYMOUS", "product", "read"},
	{"BUYER", "product", "list"}, {"BUYER", "product", "read"},
	{"SELLER", "product", "list"}, {"SELLER", "product", "read"}, {"SELLER", "product", "create"},
	{"SELLER", "product", "update"}, {"SELLER", "product", "delete"}, {"SELLER", "product", "upload"},
	{"SELLER", "product", "mine"},
	{"ADMIN", "product", "list"}, {"ADMIN", "product", "read"}, {"ADMIN", "product", "create"},
	{"ADMIN", "product", "update"}, {"ADMIN", "product", "delete"}, {"ADMIN", "product", "upload"},
	{"ADMIN", "product", "mine"},

	// account management
	{"ADMIN", "user", "list"}, {"ADMIN", "user", "read"}, {"ADMIN", "user", "update"},
	{"ADMIN", "user", "delete"}, {"ADMIN", "user", "notify"},
}

// Policy answers "may this role perform this action on this resource".
type Policy struct {
	enforcer *casbin.Enforcer
}

func New() (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(aclModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(Rules); err != nil {
		return nil, fmt.Errorf("failed to load access rules: %w", err)
	}
	return &Policy{enforcer: enforcer}, nil
}

// MustNew is New for wiring code and tests where the static rules cannot fail.
func MustNew() *Policy {
	p, err := New()
	if err != nil {
		panic(err)
	}
	return p
}

// Allowed checks role against the rule table. An empty role means an
// unauthenticated caller; any other value outside the enum is denied.
func (p *Policy) Allowed(role model.Role, resource Resource, action Action) bool {
	subject, ok := subjectFor(role)
	if !ok {
		return false
	}
	allowed, err := p.enforcer.Enforce(subject, string(resource), string(action))
	return err == nil && allowed
}

func subjectFor(role model.Role) (string, bool) {
	switch role {
	case model.RoleAdmin, model.RoleSeller, model.RoleBuyer:
		return string(role), true
	case "":
		return SubjectAnonymous, true
	default:
		return "", false
	}
}
