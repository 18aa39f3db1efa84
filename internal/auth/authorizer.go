package auth

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Policy objects and actions used by the router.
const (
	ObjectOrders    = "orders"
	ObjectPayments  = "payments"
	ObjectReviews   = "reviews"
	ObjectFavorites = "favorites"
	ObjectProfile   = "profile"

	ActionOwn    = "own"
	ActionCreate = "create"
	ActionRead   = "read"
	ActionManage = "manage"
)

// RoleOf derives the policy subject from the user record's admin flag.
func RoleOf(u *domain.User) string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Authorizer evaluates the RBAC policy. Admin status itself is provisioned
// out of band (cmd/admin), never at login time.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Authorizer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether the user's role may perform act on obj.
func (a *Authorizer) Allowed(u *domain.User, obj, act string) (bool, error) {
	ok, err := a.enforcer.Enforce(RoleOf(u), obj, act)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s: %w", obj, act, err)
	}
	return ok, nil
}
