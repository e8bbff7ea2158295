package streamsvc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/stream"
)

// RedisBroker fans events out over redis pub/sub. Nothing is persisted:
// a subscriber that was not connected when an event fired never sees it,
// which is exactly the channel's contract.
type RedisBroker struct {
	rdb    *redis.Client
	logger core.Logger
}

var _ stream.Broker = (*RedisBroker)(nil)

func NewRedisBroker(conf *core.Config, logger core.Logger) *RedisBroker {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &RedisBroker{rdb: rdb, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, evt stream.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return errors.Wrap(err, "publishing to "+topic)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan stream.Event, func(), error) {
	ps := b.rdb.Subscribe(ctx, topic)
	// confirm the subscription before handing the channel out
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, errors.Wrap(err, "subscribing to "+topic)
	}

	out := make(chan stream.Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var evt stream.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				if b.logger != nil {
					b.logger.Warn("dropping undecodable event on "+topic, err)
				}
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return out, cancel, nil
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }
