package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/docroom/internal/config"
	"github.com/dyluth/docroom/internal/health"
	"github.com/dyluth/docroom/internal/kv"
	"github.com/dyluth/docroom/internal/presence"
	"github.com/dyluth/docroom/internal/printer"
	"github.com/dyluth/docroom/internal/workspace"
	"github.com/dyluth/docroom/pkg/room"
	"github.com/redis/go-redis/v9"
)

// session holds the resources one command invocation opens.
type session struct {
	cfg       *config.DocroomConfig
	store     kv.Store
	transport room.Transport
	pinger    health.Pinger
	ws        *workspace.Workspace
	closers   []func() error
}

// openSession loads config, opens the store and, when withPresence is set,
// the room transport, then opens the workspace. Errors are already printed.
func openSession(ctx context.Context, withPresence bool) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			fmt.Sprintf("Error: %v", err),
			[]string{fmt.Sprintf("Fix or remove %s", configPath)},
		)
	}

	s := &session{cfg: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to open local state",
			fmt.Sprintf("Error: %v", err),
			map[string]string{"Backend": cfg.Store.Backend, "Path": cfg.Store.Path},
			[]string{"Check the store section of docroom.yml"},
		)
	}
	s.store = store
	s.closers = append(s.closers, store.Close)

	opts := workspace.Options{}
	if withPresence {
		if err := s.openTransport(); err != nil {
			s.Close()
			return nil, err
		}
		opts.Transport = s.transport
		opts.Presence = presence.Options{
			HeartbeatInterval: cfg.Presence.HeartbeatInterval,
			StaleAfter:        cfg.Presence.StaleAfter,
			FacepileSize:      cfg.Presence.FacepileSize,
		}
	}

	s.ws = workspace.Open(ctx, s.store, opts)
	s.closers = append(s.closers, s.ws.Close)
	return s, nil
}

func openStore(ctx context.Context, cfg *config.DocroomConfig) (kv.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		return kv.NewRedisStore(cfg.Store.RedisURL, cfg.Namespace)
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	default:
		return kv.OpenSQLite(ctx, cfg.Store.Path)
	}
}

func (s *session) openTransport() error {
	if s.cfg.Transport.Backend == config.BackendMemory {
		s.transport = room.NewMemoryTransport()
		return nil
	}

	opts, err := redis.ParseURL(s.cfg.Transport.RedisURL)
	if err != nil {
		return printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Could not parse transport.redis_url %q: %v", s.cfg.Transport.RedisURL, err),
			[]string{"Use the form redis://host:port/db"},
		)
	}

	transport, err := room.NewRedisTransport(opts, s.cfg.Namespace)
	if err != nil {
		return fmt.Errorf("failed to create room transport: %w", err)
	}
	s.transport = transport
	s.pinger = transport
	s.closers = append(s.closers, transport.Close)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("[CLI] Cleanup failed: %v", err)
		}
	}
	s.closers = nil
}

// notice reports a persistence failure of a user action without failing the
// command.
func notice(err error) {
	if err != nil {
		printer.Notice(err)
	}
}
