// Package session holds the per-browser identification state and the
// in-memory store that keeps it between requests.
package session

import (
	"errors"
	"strings"

	"github.com/phillip-england/maintreq/internal/security"
)

// State is the position of a session in the identification flow.
type State int

const (
	Locked State = iota
	NeedsName
	NeedsSectorRole
	Identified
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case NeedsName:
		return "needs-name"
	case NeedsSectorRole:
		return "needs-sector-role"
	case Identified:
		return "identified"
	default:
		return "unknown"
	}
}

var (
	ErrWrongPassword      = errors.New("wrong master password")
	ErrNameRequired       = errors.New("name is required")
	ErrSectorRoleRequired = errors.New("sector/role is required")
	ErrInvalidTransition  = errors.New("transition not allowed from current state")
)

// Identity is who is using the session. Fields only move forward: the name is
// set once in NeedsName, the sector/role once in NeedsSectorRole, and
// Identified is terminal.
type Identity struct {
	state      State
	name       string
	sectorRole string
}

// NewIdentity starts a session in Locked when the master-password gate is on,
// or directly in NeedsName otherwise.
func NewIdentity(gated bool) Identity {
	if gated {
		return Identity{state: Locked}
	}
	return Identity{state: NeedsName}
}

func (id Identity) State() State        { return id.state }
func (id Identity) Name() string        { return id.name }
func (id Identity) SectorRole() string  { return id.sectorRole }
func (id Identity) Identified() bool    { return id.state == Identified }
func (id Identity) Authenticated() bool { return id.state != Locked }

// Unlock compares the submitted password with secret exactly (case-sensitive).
func (id *Identity) Unlock(submitted, secret string) error {
	if id.state != Locked {
		return ErrInvalidTransition
	}
	if !security.MatchSecret(submitted, secret) {
		return ErrWrongPassword
	}
	id.state = NeedsName
	return nil
}

func (id *Identity) ConfirmName(name string) error {
	if id.state != NeedsName {
		return ErrInvalidTransition
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	id.name = name
	id.state = NeedsSectorRole
	return nil
}

func (id *Identity) ConfirmSectorRole(sectorRole string) error {
	if id.state != NeedsSectorRole {
		return ErrInvalidTransition
	}
	sectorRole = strings.TrimSpace(sectorRole)
	if sectorRole == "" {
		return ErrSectorRoleRequired
	}
	id.sectorRole = sectorRole
	id.state = Identified
	return nil
}
