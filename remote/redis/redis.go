// Package redis implements the remote boundary on top of go-redis.
//
// Invalidation notifications ride on Redis keyspace notifications
// (PSUBSCRIBE __keyspace@<db>__:<pattern>). The server must be started with
// notify-keyspace-events covering generic and string commands, e.g. "KEA";
// that is deployment configuration, not something this package sets.
//
// Keyspace notifications are emitted for every client's writes, so both
// subscription modes behave as broadcast here.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mirrorkv/mirrorcache"
	"github.com/mirrorkv/mirrorcache/remote"
)

var ErrNilClient = errors.New("redis remote: nil client")

const defaultHeartbeat = time.Minute

type Redis struct {
	rdb         goredis.UniversalClient
	db          int
	log         mirrorcache.Logger
	closeClient bool

	hbTicker *time.Ticker
	hbStop   chan struct{}
	hbWg     sync.WaitGroup
	once     sync.Once
}

var _ remote.Remote = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this remote exclusively owns the client

	// DB is the database index the client is connected to; it selects the
	// __keyspace@<db>__ notification channel. Default 0.
	DB int

	// Heartbeat is the keep-alive interval preventing idle-timeout
	// disconnection by the server. 0 => 1 minute; negative disables.
	Heartbeat time.Duration

	Logger mirrorcache.Logger // nil => NopLogger
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{
		rdb:         cfg.Client,
		db:          cfg.DB,
		closeClient: cfg.CloseClient,
		log:         cfg.Logger,
	}
	if r.log == nil {
		r.log = mirrorcache.NopLogger{}
	}

	hb := cfg.Heartbeat
	if hb == 0 {
		hb = defaultHeartbeat
	}
	if hb > 0 {
		r.hbTicker = time.NewTicker(hb)
		r.hbStop = make(chan struct{})
		r.hbWg.Add(1)
		go r.heartbeatLoop()
	}
	return r, nil
}

// heartbeatLoop periodically touches the connection. Failures are logged,
// never fatal; go-redis reconnects on the next command.
func (r *Redis) heartbeatLoop() {
	defer r.hbWg.Done()
	for {
		select {
		case <-r.hbTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.rdb.Ping(ctx).Err(); err != nil {
				r.log.Warn("redis keep-alive ping failed", mirrorcache.Fields{"err": err})
			}
			cancel()
		case <-r.hbStop:
			return
		}
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl == remote.KeepTTL {
		return r.rdb.Set(ctx, key, payload, goredis.KeepTTL).Err()
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, key, payload, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Del(ctx, key).Result()
	return n == 1, err
}

func (r *Redis) DelMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return r.rdb.Del(ctx, keys...).Result()
}

func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.rdb.Keys(ctx, pattern).Result()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Subscribe(ctx context.Context, pattern string, mode remote.Mode) (remote.Subscription, error) {
	if mode == remote.ModeDirect {
		r.log.Debug("direct tracking unavailable on keyspace notifications; using broadcast",
			mirrorcache.Fields{"pattern": pattern})
	}
	prefix := fmt.Sprintf("__keyspace@%d__:", r.db)
	ps := r.rdb.PSubscribe(ctx, prefix+pattern)
	// force the SUBSCRIBE round-trip so setup errors surface here
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	s := &subscription{ps: ps, out: make(chan string, 64)}
	s.wg.Add(1)
	go s.pump(prefix)
	return s, nil
}

type subscription struct {
	ps   *goredis.PubSub
	out  chan string
	wg   sync.WaitGroup
	once sync.Once
}

func (s *subscription) pump(prefix string) {
	defer s.wg.Done()
	defer close(s.out)
	for msg := range s.ps.Channel() {
		// channel name carries the key; payload is the event verb
		s.out <- strings.TrimPrefix(msg.Channel, prefix)
	}
}

func (s *subscription) Keys() <-chan string { return s.out }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}

// Close stops the heartbeat and releases the underlying client only when this
// remote owns it. Safe to call multiple times.
func (r *Redis) Close(context.Context) error {
	r.once.Do(func() {
		if r.hbStop != nil {
			close(r.hbStop)
			r.hbTicker.Stop()
			r.hbWg.Wait()
		}
	})
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
