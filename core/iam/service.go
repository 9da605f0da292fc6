package iam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Migorithm/IAM/core/bus"
	"github.com/Migorithm/IAM/core/es"
)

// Service holds the command and event handlers of the IAM bounded context.
// Each handler runs inside the unit of work the bus opened for it and is
// responsible for committing its own writes.
type Service struct {
	log *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log.With(slog.String("component", "iam"))}
}

func (s *Service) CreateUser(ctx context.Context, cmd CreateUser, uow *es.UnitOfWork) (any, error) {
	user, err := NewUser(cmd)
	if err != nil {
		return nil, err
	}
	if err := uow.Repo().Save(ctx, user); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("user created", slog.String("user_id", user.ID.String()), slog.String("name", user.Name))
	return user, nil
}

func (s *Service) MakePurchase(ctx context.Context, cmd MakePurchase, uow *es.UnitOfWork) (any, error) {
	if cmd.GroupPurchase {
		return s.mutateGroup(ctx, uow, cmd.GroupID, func(g *Group) error {
			return g.MakePurchase(cmd)
		})
	}
	return s.mutateUser(ctx, uow, cmd.UserID, func(u *User) error {
		return u.MakePurchase(cmd)
	})
}

func (s *Service) AssignPermission(ctx context.Context, cmd AssignPermission, uow *es.UnitOfWork) (any, error) {
	return s.mutateUser(ctx, uow, cmd.UserID, func(u *User) error {
		return u.AssignPermission(cmd)
	})
}

func (s *Service) ExpirePermission(ctx context.Context, cmd ExpirePermission, uow *es.UnitOfWork) (any, error) {
	return s.mutateUser(ctx, uow, cmd.UserID, func(u *User) error {
		return u.ExpirePermission(cmd)
	})
}

func (s *Service) RequestCreateGroup(ctx context.Context, cmd RequestCreateGroup, uow *es.UnitOfWork) (any, error) {
	return s.mutateUser(ctx, uow, cmd.UserID, func(u *User) error {
		return u.RequestCreateGroup(cmd)
	})
}

func (s *Service) CreateGroup(ctx context.Context, cmd CreateGroup, uow *es.UnitOfWork) (any, error) {
	group, err := NewGroup(cmd)
	if err != nil {
		return nil, err
	}
	if err := uow.Repo().Save(ctx, group); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("group created",
		slog.String("group_id", group.ID.String()),
		slog.String("name", group.Name),
		slog.String("created_by", group.CreatedBy.String()),
	)
	return group, nil
}

func (s *Service) CreateGroupRole(ctx context.Context, cmd CreateGroupRole, uow *es.UnitOfWork) (any, error) {
	return s.mutateGroup(ctx, uow, cmd.GroupID, func(g *Group) error {
		return g.CreateRole(cmd)
	})
}

func (s *Service) AddUser(ctx context.Context, cmd AddUser, uow *es.UnitOfWork) (any, error) {
	return s.mutateGroup(ctx, uow, cmd.GroupID, func(g *Group) error {
		return g.AddUser(cmd)
	})
}

func (s *Service) AssignGroupRole(ctx context.Context, cmd AssignGroupRole, uow *es.UnitOfWork) (any, error) {
	return s.mutateGroup(ctx, uow, cmd.GroupID, func(g *Group) error {
		return g.AssignRole(cmd)
	})
}

// OnGroupCreateRequested materializes the group a user asked for. It runs
// in its own transaction after the user's commit; the group id was decided
// by the requesting user's event.
func (s *Service) OnGroupCreateRequested(ctx context.Context, ev *GroupCreateRequested, uow *es.UnitOfWork) error {
	_, err := s.CreateGroup(ctx, CreateGroup{
		Name:    ev.Name,
		UserID:  ev.UserID,
		GroupID: ev.GroupID,
	}, uow)
	return err
}

func (s *Service) mutateUser(ctx context.Context, uow *es.UnitOfWork, id uuid.UUID, fn func(*User) error) (any, error) {
	agg, err := uow.Repo().Load(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := asUser(agg)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := uow.Repo().Save(ctx, user); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) mutateGroup(ctx context.Context, uow *es.UnitOfWork, id uuid.UUID, fn func(*Group) error) (any, error) {
	agg, err := uow.Repo().Load(ctx, id)
	if err != nil {
		return nil, err
	}
	group, err := asGroup(agg)
	if err != nil {
		return nil, err
	}
	if err := fn(group); err != nil {
		return nil, err
	}
	if err := uow.Repo().Save(ctx, group); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return group, nil
}

// RegisterHandlers binds every IAM command and event handler to the registry.
func RegisterHandlers(r *bus.Registry, svc *Service) error {
	if err := bus.HandleCommandUoW(r, svc.CreateUser); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.MakePurchase); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.AssignPermission); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.ExpirePermission); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.RequestCreateGroup); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.CreateGroup); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.CreateGroupRole); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.AddUser); err != nil {
		return err
	}
	if err := bus.HandleCommandUoW(r, svc.AssignGroupRole); err != nil {
		return err
	}
	bus.SubscribeEventUoW(r, svc.OnGroupCreateRequested)
	return nil
}

// RegisterEvents binds every IAM event topic to its constructor.
func RegisterEvents(topics *es.TopicRegistry) error {
	registrations := []func(*es.TopicRegistry) error{
		es.RegisterEventFor[UserCreated],
		es.RegisterEventFor[UserPurchaseMade],
		es.RegisterEventFor[UserPermissionAssigned],
		es.RegisterEventFor[UserPermissionExpired],
		es.RegisterEventFor[GroupCreateRequested],
		es.RegisterEventFor[GroupCreated],
		es.RegisterEventFor[GroupPurchaseMade],
		es.RegisterEventFor[GroupPermissionAssigned],
		es.RegisterEventFor[GroupRoleCreated],
		es.RegisterEventFor[GroupUserAdded],
		es.RegisterEventFor[GroupRoleAssigned],
	}
	for _, register := range registrations {
		if err := register(topics); err != nil {
			return err
		}
	}
	return nil
}

// NewTopicRegistry returns a registry with every IAM event registered.
func NewTopicRegistry() (*es.TopicRegistry, error) {
	topics := es.NewTopicRegistry()
	if err := RegisterEvents(topics); err != nil {
		return nil, fmt.Errorf("register iam events: %w", err)
	}
	return topics, nil
}
