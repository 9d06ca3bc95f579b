// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package chat

import (
	"context"
	"strconv"
	"sync"

	"github.com/samber/lo"
)

// Operation names accepted by MemoryGateway.Deny.
const (
	OpCreateRole    = "create_role"
	OpCreateGroup   = "create_group"
	OpCreateChannel = "create_channel"
	OpGrant         = "grant"
	OpRevoke        = "revoke"
)

// MemoryGateway keeps all entities in memory. It backs tests and dry runs.
// Like most chat platforms it allows duplicate names unless UniqueNames is set.
type MemoryGateway struct {
	mu          sync.Mutex
	nextID      int
	roles       []Role
	groups      []Group
	channels    []channelEntry
	members     map[string][]string
	denied      map[string]bool
	UniqueNames bool
}

type channelEntry struct {
	Channel
	Topic      string
	Overwrites []Overwrite
}

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		members: make(map[string][]string),
		denied:  make(map[string]bool),
	}
}

// Deny makes every later call of the named operation fail with ErrForbidden.
func (g *MemoryGateway) Deny(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.denied[op] = true
}

// Allow reverts Deny.
func (g *MemoryGateway) Allow(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.denied, op)
}

func (g *MemoryGateway) id() string {
	g.nextID++
	return strconv.Itoa(g.nextID)
}

// FindRoleByName implements Gateway.
func (g *MemoryGateway) FindRoleByName(_ context.Context, name string) (*Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := lo.Find(g.roles, func(r Role) bool { return r.Name == name })
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// CreateRole implements Gateway.
func (g *MemoryGateway) CreateRole(_ context.Context, spec RoleSpec) (*Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denied[OpCreateRole] {
		return nil, ErrForbidden
	}
	if g.UniqueNames && lo.ContainsBy(g.roles, func(r Role) bool { return r.Name == spec.Name }) {
		return nil, ErrAlreadyExists
	}
	r := Role{ID: g.id(), Name: spec.Name}
	g.roles = append(g.roles, r)
	return &r, nil
}

// FindGroupByName implements Gateway.
func (g *MemoryGateway) FindGroupByName(_ context.Context, name string) (*Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gr, ok := lo.Find(g.groups, func(gr Group) bool { return gr.Name == name })
	if !ok {
		return nil, nil
	}
	return &gr, nil
}

// CreateGroup implements Gateway.
func (g *MemoryGateway) CreateGroup(_ context.Context, spec GroupSpec) (*Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denied[OpCreateGroup] {
		return nil, ErrForbidden
	}
	if g.UniqueNames && lo.ContainsBy(g.groups, func(gr Group) bool { return gr.Name == spec.Name }) {
		return nil, ErrAlreadyExists
	}
	gr := Group{ID: g.id(), Name: spec.Name}
	g.groups = append(g.groups, gr)
	return &gr, nil
}

// FindChannel implements Gateway.
func (g *MemoryGateway) FindChannel(_ context.Context, name, groupID string) (*Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := lo.Find(g.channels, func(c channelEntry) bool {
		return c.Name == name && (groupID == "" || c.GroupID == groupID)
	})
	if !ok {
		return nil, nil
	}
	return &c.Channel, nil
}

// CreateChannel implements Gateway.
func (g *MemoryGateway) CreateChannel(_ context.Context, spec ChannelSpec) (*Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denied[OpCreateChannel] {
		return nil, ErrForbidden
	}
	if g.UniqueNames && lo.ContainsBy(g.channels, func(c channelEntry) bool {
		return c.Name == spec.Name && c.GroupID == spec.GroupID
	}) {
		return nil, ErrAlreadyExists
	}
	c := channelEntry{
		Channel:    Channel{ID: g.id(), Name: spec.Name, GroupID: spec.GroupID},
		Topic:      spec.Topic,
		Overwrites: spec.Overwrites,
	}
	g.channels = append(g.channels, c)
	return &c.Channel, nil
}

// GrantMembership implements Gateway.
func (g *MemoryGateway) GrantMembership(_ context.Context, accountID string, roles ...Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denied[OpGrant] {
		return ErrForbidden
	}
	ids := lo.Map(roles, func(r Role, _ int) string { return r.ID })
	g.members[accountID] = lo.Union(g.members[accountID], ids)
	return nil
}

// RevokeMembership implements Gateway.
func (g *MemoryGateway) RevokeMembership(_ context.Context, accountID string, roles ...Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denied[OpRevoke] {
		return ErrForbidden
	}
	ids := lo.Map(roles, func(r Role, _ int) string { return r.ID })
	g.members[accountID] = lo.Without(g.members[accountID], ids...)
	return nil
}

// RoleNames returns the names of all roles in creation order.
func (g *MemoryGateway) RoleNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Map(g.roles, func(r Role, _ int) string { return r.Name })
}

// GroupNames returns the names of all groups in creation order.
func (g *MemoryGateway) GroupNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Map(g.groups, func(gr Group, _ int) string { return gr.Name })
}

// ChannelNames returns the names of all channels in creation order.
func (g *MemoryGateway) ChannelNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Map(g.channels, func(c channelEntry, _ int) string { return c.Name })
}

// ChannelOverwrites returns the overwrites of the first channel with the name.
func (g *MemoryGateway) ChannelOverwrites(name string) []Overwrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, _ := lo.Find(g.channels, func(c channelEntry) bool { return c.Name == name })
	return c.Overwrites
}

// MemberRoles returns the names of the roles held by the account.
func (g *MemoryGateway) MemberRoles(accountID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := g.members[accountID]
	held := lo.Filter(g.roles, func(r Role, _ int) bool { return lo.Contains(ids, r.ID) })
	return lo.Map(held, func(r Role, _ int) string { return r.Name })
}
