package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability is a single permission bit on sms messages.
type Capability int

const (
	ViewOwn Capability = iota + 1
	ViewOther
	Create
	EditOwn
	EditOther
	DeleteOwn
	DeleteOther
	PublishOwn
	PublishOther
)

var capabilityNames = map[Capability]string{
	ViewOwn:      "view-own",
	ViewOther:    "view-other",
	Create:       "create",
	EditOwn:      "edit-own",
	EditOther:    "edit-other",
	DeleteOwn:    "delete-own",
	DeleteOther:  "delete-other",
	PublishOwn:   "publish-own",
	PublishOther: "publish-other",
}

// AllCapabilities lists every capability in declaration order.
func AllCapabilities() []Capability {
	return []Capability{ViewOwn, ViewOther, Create, EditOwn, EditOther, DeleteOwn, DeleteOther, PublishOwn, PublishOther}
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// OwnScoped reports whether the capability only applies to resources the
// subject owns.
func (c Capability) OwnScoped() bool {
	switch c {
	case ViewOwn, EditOwn, DeleteOwn, PublishOwn:
		return true
	}
	return false
}

func ParseCapability(name string) (Capability, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for c, n := range capabilityNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// PermissionSet is the result of a bulk check, keyed by capability.
type PermissionSet map[Capability]bool

func (p PermissionSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, len(p))
	for c, ok := range p {
		out[c.String()] = ok
	}
	return json.Marshal(out)
}
