package services

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
	"github.com/jasurbek-jolanboyev/safechat.uz/runtime"
)

type IChatService interface {
	Join(identity string, connID uuid.UUID, sink contract.EventSink) error
	Leave(connID uuid.UUID, identity string)
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	EditMessage(ctx context.Context, cmd domain.EditMessageCommand) error
	DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error
	Typing(ctx context.Context, cmd domain.TypingCommand) error
	CallSignal(ctx context.Context, cmd domain.CallSignalCommand) error
	History(cmd domain.HistoryCommand) ([]domain.Message, *string, error)
	CreateEntity(ctx context.Context, cmd domain.CreateEntityCommand) (domain.Entity, error)
	AddMember(ctx context.Context, cmd domain.MembershipCommand) error
	LeaveEntity(ctx context.Context, cmd domain.MembershipCommand) error
	Block(owner, blocked string) error
	Unblock(owner, blocked string) error
}

// ChatService is the facade the gateway talks to. It wires connection
// lifecycle (presence, subscriptions, the online flag) around the router
// and entity manager, which hold the actual routing rules.
type ChatService struct {
	log      *slog.Logger
	users    repositories.IUserRepository
	presence contract.IPresence
	resolver *runtime.Resolver
	router   *runtime.Router
	manager  *runtime.EntityManager
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	presence contract.IPresence,
	resolver *runtime.Resolver,
	router *runtime.Router,
	manager *runtime.EntityManager,
) *ChatService {
	return &ChatService{
		log:      log,
		users:    users,
		presence: presence,
		resolver: resolver,
		router:   router,
		manager:  manager,
	}
}

// Join attaches a live connection: register the sink, subscribe it to every
// room the identity resolves to, and flip the persisted online flag. An
// identity with no stored user record can still join (guest); only the
// online flag is skipped.
func (s *ChatService) Join(identity string, connID uuid.UUID, sink contract.EventSink) error {
	s.presence.Register(identity, connID, sink)
	if err := s.resolver.SubscribeConnection(identity, connID); err != nil {
		s.presence.Unregister(connID)
		return err
	}

	if err := s.users.SetOnline(identity, true); err != nil && !stderrors.Is(err, errors.ErrUserNotFound) {
		s.log.Warn("Failed to persist online flag", "identity", identity, "err", err)
	}
	s.log.Info("Connection joined", "identity", identity, "conn", connID)
	return nil
}

// Leave detaches a connection. The online flag only drops when the last
// device of the identity disconnects.
func (s *ChatService) Leave(connID uuid.UUID, identity string) {
	s.presence.Unregister(connID)

	if len(s.presence.ConnectionsOf(identity)) == 0 {
		if err := s.users.SetOnline(identity, false); err != nil && !stderrors.Is(err, errors.ErrUserNotFound) {
			s.log.Warn("Failed to persist online flag", "identity", identity, "err", err)
		}
	}
	s.log.Info("Connection left", "identity", identity, "conn", connID)
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.router.Send(ctx, cmd)
}

func (s *ChatService) EditMessage(ctx context.Context, cmd domain.EditMessageCommand) error {
	return s.router.Edit(ctx, cmd)
}

func (s *ChatService) DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error {
	return s.router.Delete(ctx, cmd)
}

func (s *ChatService) Typing(ctx context.Context, cmd domain.TypingCommand) error {
	return s.router.Typing(ctx, cmd)
}

func (s *ChatService) CallSignal(ctx context.Context, cmd domain.CallSignalCommand) error {
	return s.router.CallSignal(ctx, cmd)
}

func (s *ChatService) History(cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	return s.router.History(cmd)
}

func (s *ChatService) CreateEntity(ctx context.Context, cmd domain.CreateEntityCommand) (domain.Entity, error) {
	return s.manager.Create(ctx, cmd)
}

func (s *ChatService) AddMember(ctx context.Context, cmd domain.MembershipCommand) error {
	return s.manager.AddMember(ctx, cmd)
}

func (s *ChatService) LeaveEntity(ctx context.Context, cmd domain.MembershipCommand) error {
	return s.manager.Leave(ctx, cmd)
}

func (s *ChatService) Block(owner, blocked string) error {
	return s.users.Block(owner, blocked)
}

func (s *ChatService) Unblock(owner, blocked string) error {
	return s.users.Unblock(owner, blocked)
}
