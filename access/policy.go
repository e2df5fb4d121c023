/*
Package access decides who may act on which timesheet entry.

ROLES (closed set, from least to most senior):
  worker      records their own time
  supervisor  site foreman: enters and reviews time for the crews on their sites
  manager     works manager: reviews any site, exports payroll
  admin       everything

CAPABILITY MATRIX:
                     worker   supervisor   manager   admin
  create/modify      self     sites*       any       any
  validate/reject    -        sites*       any       any
  delete             self     sites*       any       any
  export             -        -            yes       yes
  manage formulas    -        -            yes       yes

  * only when Policy.RestrictSupervisorsToSites is set; otherwise any site.

FAIL CLOSED:
  A role outside the closed set gets no capability at all.

USAGE:
  policy := access.Policy{RestrictSupervisorsToSites: true}
  if err := policy.AuthorizeValidate(actor, entry.SiteID); err != nil {
      return err // *DeniedError, errors.Is(err, ErrPermissionDenied)
  }
*/
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

var (
	AllRoles            = []Role{RoleWorker, RoleSupervisor, RoleManager, RoleAdmin}
	ReviewerRoleSet     = []Role{RoleSupervisor, RoleManager, RoleAdmin}
	ManagerAdminRoleSet = []Role{RoleManager, RoleAdmin}
)

func (r Role) Valid() bool { return slices.Contains(AllRoles, r) }

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// =============================================================================
// CAPABILITIES
// =============================================================================

type Capability string

const (
	CapModify         Capability = "modify"
	CapValidate       Capability = "validate"
	CapReject         Capability = "reject"
	CapDelete         Capability = "delete"
	CapExport         Capability = "export"
	CapManageFormulas Capability = "manage_formulas"
)

// scope says how far a role's capability reaches.
type scope int

const (
	scopeNone scope = iota
	scopeSelf
	scopeSites // any target on the actor's sites when restriction is on
	scopeAll
)

var matrix = map[Role]map[Capability]scope{
	RoleWorker: {
		CapModify: scopeSelf,
		CapDelete: scopeSelf,
	},
	RoleSupervisor: {
		CapModify:   scopeSites,
		CapValidate: scopeSites,
		CapReject:   scopeSites,
		CapDelete:   scopeSites,
	},
	RoleManager: {
		CapModify:         scopeAll,
		CapValidate:       scopeAll,
		CapReject:         scopeAll,
		CapDelete:         scopeAll,
		CapExport:         scopeAll,
		CapManageFormulas: scopeAll,
	},
	RoleAdmin: {
		CapModify:         scopeAll,
		CapValidate:       scopeAll,
		CapReject:         scopeAll,
		CapDelete:         scopeAll,
		CapExport:         scopeAll,
		CapManageFormulas: scopeAll,
	},
}

// =============================================================================
// ACTOR
// =============================================================================

// Actor is the user performing an action, resolved by a Directory.
type Actor struct {
	ID    int64
	Name  string
	Role  Role
	Sites []int64 // sites the actor supervises
}

func (a Actor) Supervises(siteID int64) bool { return slices.Contains(a.Sites, siteID) }

// Directory resolves actor identity, role and supervised sites.
type Directory interface {
	Actor(ctx context.Context, id int64) (Actor, error)
}

// =============================================================================
// POLICY
// =============================================================================

// Policy evaluates the capability matrix. The zero value does not restrict
// supervisors to their sites.
type Policy struct {
	RestrictSupervisorsToSites bool
}

// Allowed is the general check. siteID 0 means "no site in question".
func (p Policy) Allowed(actor Actor, capability Capability, targetWorkerID, siteID int64) bool {
	switch matrix[actor.Role][capability] {
	case scopeAll:
		return true
	case scopeSelf:
		return actor.ID != 0 && actor.ID == targetWorkerID
	case scopeSites:
		if !p.RestrictSupervisorsToSites || siteID == 0 {
			return true
		}
		return actor.Supervises(siteID)
	default:
		return false
	}
}

// CanCreateOrModifyFor: a worker only for itself, reviewers for anyone
// (supervisors possibly limited to their sites).
func (p Policy) CanCreateOrModifyFor(actor Actor, targetWorkerID, siteID int64) bool {
	return p.Allowed(actor, CapModify, targetWorkerID, siteID)
}

func (p Policy) CanValidate(actor Actor, siteID int64) bool {
	return p.Allowed(actor, CapValidate, 0, siteID)
}

func (p Policy) CanReject(actor Actor, siteID int64) bool {
	return p.Allowed(actor, CapReject, 0, siteID)
}

func (p Policy) CanDelete(actor Actor, targetWorkerID, siteID int64) bool {
	return p.Allowed(actor, CapDelete, targetWorkerID, siteID)
}

// CanExport is granted to the two most senior roles only.
func CanExport(role Role) bool {
	return matrix[role][CapExport] == scopeAll
}

func CanManageFormulas(role Role) bool {
	return matrix[role][CapManageFormulas] == scopeAll
}

// =============================================================================
// AUTHORIZE - error-returning variants
// =============================================================================

func (p Policy) Authorize(actor Actor, capability Capability, targetWorkerID, siteID int64) error {
	if p.Allowed(actor, capability, targetWorkerID, siteID) {
		return nil
	}
	return &DeniedError{ActorID: actor.ID, Role: actor.Role, Capability: capability, TargetWorkerID: targetWorkerID, SiteID: siteID}
}

func (p Policy) AuthorizeValidate(actor Actor, siteID int64) error {
	return p.Authorize(actor, CapValidate, 0, siteID)
}

func (p Policy) AuthorizeReject(actor Actor, siteID int64) error {
	return p.Authorize(actor, CapReject, 0, siteID)
}

func AuthorizeExport(actor Actor) error {
	if CanExport(actor.Role) {
		return nil
	}
	return &DeniedError{ActorID: actor.ID, Role: actor.Role, Capability: CapExport}
}

func AuthorizeManageFormulas(actor Actor) error {
	if CanManageFormulas(actor.Role) {
		return nil
	}
	return &DeniedError{ActorID: actor.ID, Role: actor.Role, Capability: CapManageFormulas}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownActor     = errors.New("unknown actor")
)

// DeniedError describes a refused action.
type DeniedError struct {
	ActorID        int64
	Role           Role
	Capability     Capability
	TargetWorkerID int64
	SiteID         int64
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("permission denied: actor %d (%s) cannot %s", e.ActorID, e.Role, e.Capability)
	if e.TargetWorkerID != 0 {
		msg += fmt.Sprintf(" for worker %d", e.TargetWorkerID)
	}
	if e.SiteID != 0 {
		msg += fmt.Sprintf(" on site %d", e.SiteID)
	}
	return msg
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }
