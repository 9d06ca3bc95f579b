// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package chat defines the contract with the chat platform: roles, channel
// groups, channels and role membership.
package chat

import (
	"context"
	"errors"
)

var (
	// ErrForbidden is returned when the platform denies an operation.
	ErrForbidden = errors.New("chat: permission denied")
	// ErrAlreadyExists is returned when a create call collides with an
	// existing entity of the same name.
	ErrAlreadyExists = errors.New("chat: already exists")
)

// Permission is a bit set of channel permissions.
type Permission uint8

// Channel permissions.
const (
	PermView Permission = 1 << iota
	PermSend
	PermManage
)

// Has reports whether all bits of q are set in p.
func (p Permission) Has(q Permission) bool {
	return p&q == q
}

// TargetKind selects who a permission overwrite applies to.
type TargetKind string

// Overwrite targets.
const (
	TargetEveryone TargetKind = "everyone"
	TargetRole     TargetKind = "role"
	TargetSelf     TargetKind = "self"
)

// Overwrite grants and denies permissions for one target.
type Overwrite struct {
	Target TargetKind `json:"target"`
	RoleID string     `json:"role_id,omitempty"`
	Allow  Permission `json:"allow"`
	Deny   Permission `json:"deny"`
}

// Role is a grant that confers channel visibility.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is a container of channels.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a text channel, optionally inside a group.
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GroupID string `json:"group_id,omitempty"`
}

// RoleSpec describes a role to create.
type RoleSpec struct {
	Name        string `json:"name"`
	Mentionable bool   `json:"mentionable"`
	Reason      string `json:"reason,omitempty"`
}

// GroupSpec describes a channel group to create.
type GroupSpec struct {
	Name       string      `json:"name"`
	Overwrites []Overwrite `json:"overwrites"`
	Reason     string      `json:"reason,omitempty"`
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string      `json:"name"`
	GroupID    string      `json:"group_id,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	Overwrites []Overwrite `json:"overwrites"`
}

// Gateway is implemented by chat platform adapters. Find methods return
// nil and no error when nothing matches. Any method may fail with
// ErrForbidden; create methods may fail with ErrAlreadyExists.
type Gateway interface {
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	CreateRole(ctx context.Context, spec RoleSpec) (*Role, error)
	FindGroupByName(ctx context.Context, name string) (*Group, error)
	CreateGroup(ctx context.Context, spec GroupSpec) (*Group, error)
	// FindChannel looks in the given group, or everywhere when groupID is empty.
	FindChannel(ctx context.Context, name, groupID string) (*Channel, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	GrantMembership(ctx context.Context, accountID string, roles ...Role) error
	RevokeMembership(ctx context.Context, accountID string, roles ...Role) error
}
