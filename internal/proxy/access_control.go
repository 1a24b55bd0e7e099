package proxy

import (
	"fmt"
	"strings"

	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    uuid.UUID
	Name  string
	Roles []string
}

// wildcard grants every capability to a role.
const wildcard = "*"

type AccessControl struct {
	roles map[string]map[Capability]bool
}

func NewAccessControl(roles map[string][]Capability) *AccessControl {
	a := &AccessControl{roles: make(map[string]map[Capability]bool, len(roles))}
	for role, caps := range roles {
		set := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		a.roles[role] = set
	}
	return a
}

// ParseRoles parses "role=cap,cap;role2=*". Any unknown capability name is a
// configuration error and must stop startup.
func ParseRoles(spec string) (map[string][]Capability, error) {
	roles := make(map[string][]Capability)
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		role, list, ok := strings.Cut(entry, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("invalid role definition %q", entry)
		}
		if _, dup := roles[role]; dup {
			return nil, fmt.Errorf("role %s defined twice", role)
		}
		caps := []Capability{}
		for _, name := range strings.Split(list, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == wildcard {
				caps = append(caps, AllCapabilities()...)
				continue
			}
			c, err := ParseCapability(name)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", role, err)
			}
			caps = append(caps, c)
		}
		roles[role] = caps
	}
	return roles, nil
}

// Has reports whether any of the principal's roles grants c.
func (a *AccessControl) Has(p Principal, c Capability) bool {
	for _, role := range p.Roles {
		if a.roles[role][c] {
			return true
		}
	}
	return false
}

// Evaluate checks c for p. When owner is given, own-scoped capabilities only
// pass if p owns the resource.
func (a *AccessControl) Evaluate(c Capability, p Principal, owner *uuid.UUID) bool {
	if !a.Has(p, c) {
		return false
	}
	if owner != nil && c.OwnScoped() {
		return p.ID != uuid.Nil && p.ID == *owner
	}
	return true
}

func (a *AccessControl) CheckBulk(p Principal, caps ...Capability) PermissionSet {
	if len(caps) == 0 {
		caps = AllCapabilities()
	}
	out := make(PermissionSet, len(caps))
	for _, c := range caps {
		out[c] = a.Has(p, c)
	}
	return out
}

func (a *AccessControl) CheckEntity(p Principal, own, other Capability, owner uuid.UUID) bool {
	return a.Evaluate(other, p, &owner) || a.Evaluate(own, p, &owner)
}

func (a *AccessControl) CanList(p Principal) error {
	if a.Has(p, ViewOwn) || a.Has(p, ViewOther) {
		return nil
	}
	return sms_errors.ErrForbidden
}

func (a *AccessControl) CanView(p Principal, owner uuid.UUID) error {
	return a.ensure(a.CheckEntity(p, ViewOwn, ViewOther, owner))
}

func (a *AccessControl) CanCreate(p Principal) error {
	return a.ensure(a.Has(p, Create))
}

func (a *AccessControl) CanEdit(p Principal, owner uuid.UUID) error {
	return a.ensure(a.CheckEntity(p, EditOwn, EditOther, owner))
}

func (a *AccessControl) CanDelete(p Principal, owner uuid.UUID) error {
	return a.ensure(a.CheckEntity(p, DeleteOwn, DeleteOther, owner))
}

func (a *AccessControl) CanPublish(p Principal, owner uuid.UUID) error {
	return a.ensure(a.CheckEntity(p, PublishOwn, PublishOther, owner))
}

func (a *AccessControl) ensure(ok bool) error {
	if !ok {
		return sms_errors.ErrForbidden
	}
	return nil
}
