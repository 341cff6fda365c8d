package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var ErrRelayBusy = errors.New("relay: outbound queue full")

type Config struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string // board:room:
	Buffer        int
}

// Envelope — то, что летит между инстансами через redis pub/sub.
type Envelope struct {
	Instance string          `json:"instance"`
	RoomID   domain.RoomID   `json:"roomId"`
	Payload  json.RawMessage `json:"payload"`
}

// Sink — локальная доставка кадра, пришедшего с другого инстанса.
type Sink interface {
	DeliverRemote(roomID domain.RoomID, payload []byte)
}

// Redis — межпроцессный relay для Hub. Публикация асинхронная:
// Publish только кладёт в очередь, чтобы рассылка не ждала сеть.
type Redis struct {
	client   *redis.Client
	prefix   string
	instance string
	out      chan Envelope
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("relay: connect to redis: %w", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, cfg Config, instance string) *Redis {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "board:room:"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	return &Redis{
		client:   client,
		prefix:   cfg.ChannelPrefix,
		instance: instance,
		out:      make(chan Envelope, cfg.Buffer),
	}
}

func (r *Redis) Publish(roomID domain.RoomID, payload []byte) error {
	env := Envelope{Instance: r.instance, RoomID: roomID, Payload: payload}
	select {
	case r.out <- env:
		return nil
	default:
		metrics.RelayMessages.WithLabelValues("out", "dropped").Inc()
		return ErrRelayBusy
	}
}

// Run крутит публикацию и подписку, пока не отменят ctx.
func (r *Redis) Run(ctx context.Context, sink Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.publishLoop(ctx) })
	g.Go(func() error { return r.subscribeLoop(ctx, sink) })
	return g.Wait()
}

func (r *Redis) publishLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-r.out:
			b, err := json.Marshal(env)
			if err != nil {
				slog.Error("relay.publish: marshal", slog.Any("err", err))
				continue
			}
			if err := r.client.Publish(ctx, r.Channel(env.RoomID), b).Err(); err != nil {
				metrics.RelayMessages.WithLabelValues("out", "failed").Inc()
				slog.Warn("relay.publish failed", "room", env.RoomID, slog.Any("err", err))
				continue
			}
			metrics.RelayMessages.WithLabelValues("out", "ok").Inc()
		}
	}
}

func (r *Redis) subscribeLoop(ctx context.Context, sink Sink) error {
	sub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay: psubscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Channel, []byte(msg.Payload), sink)
		}
	}
}

func (r *Redis) handle(channel string, raw []byte, sink Sink) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		metrics.RelayMessages.WithLabelValues("in", "invalid").Inc()
		slog.Debug("relay: bad envelope", "channel", channel, slog.Any("err", err))
		return
	}
	// своё уже разослано локально
	if env.Instance == r.instance {
		return
	}
	if id, ok := r.roomFromChannel(channel); ok && id != env.RoomID {
		metrics.RelayMessages.WithLabelValues("in", "invalid").Inc()
		return
	}
	metrics.RelayMessages.WithLabelValues("in", "ok").Inc()
	sink.DeliverRemote(env.RoomID, env.Payload)
}

func (r *Redis) Channel(roomID domain.RoomID) string {
	return r.prefix + roomID.String()
}

func (r *Redis) roomFromChannel(channel string) (domain.RoomID, bool) {
	rest, ok := strings.CutPrefix(channel, r.prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.RoomID(n), true
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Instance == "" || env.RoomID <= 0 || len(env.Payload) == 0 {
		return Envelope{}, errors.New("relay: incomplete envelope")
	}
	return env, nil
}
