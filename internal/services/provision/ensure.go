// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/chat"
)

// ensure runs find, and create when find comes back empty. A create that
// conflicts with a concurrent creator falls back to find. Calls for the same
// key are collapsed within the process. The flight is detached from the
// first caller's cancellation.
func ensure[T any](ctx context.Context, r *Resolver, key, kind, name string, find, create func(context.Context) (*T, error)) (*T, error) {
	v, err, _ := r.flight.Do(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		found, err := find(fctx)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}

		created, err := create(fctx)
		if errors.Is(err, chat.ErrAlreadyExists) {
			found, err = find(fctx)
			if err != nil {
				return nil, err
			}
			if found == nil {
				return nil, fmt.Errorf("%s %q reported as existing but not found", kind, name)
			}
			return found, nil
		}
		if err != nil {
			return nil, err
		}
		r.metrics.ResourceCreated(kind)
		slog.Info("resource created", "kind", kind, "name", name)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*T)
	return &out, nil
}

func (r *Resolver) ensureRole(ctx context.Context, spec chat.RoleSpec) (*chat.Role, error) {
	return ensure(ctx, r, "role/"+spec.Name, KindRole, spec.Name,
		func(ctx context.Context) (*chat.Role, error) { return r.gw.FindRoleByName(ctx, spec.Name) },
		func(ctx context.Context) (*chat.Role, error) { return r.gw.CreateRole(ctx, spec) },
	)
}

func (r *Resolver) ensureGroup(ctx context.Context, spec chat.GroupSpec) (*chat.Group, error) {
	return ensure(ctx, r, "group/"+spec.Name, KindGroup, spec.Name,
		func(ctx context.Context) (*chat.Group, error) { return r.gw.FindGroupByName(ctx, spec.Name) },
		func(ctx context.Context) (*chat.Group, error) { return r.gw.CreateGroup(ctx, spec) },
	)
}

// ensureChannel looks the channel up in lookupGroup, or everywhere when it
// is empty, and creates it in spec.GroupID.
func (r *Resolver) ensureChannel(ctx context.Context, spec chat.ChannelSpec, lookupGroup string) (*chat.Channel, error) {
	return ensure(ctx, r, "channel/"+lookupGroup+"/"+spec.Name, KindChannel, spec.Name,
		func(ctx context.Context) (*chat.Channel, error) { return r.gw.FindChannel(ctx, spec.Name, lookupGroup) },
		func(ctx context.Context) (*chat.Channel, error) { return r.gw.CreateChannel(ctx, spec) },
	)
}
