package pubsub

import (
	"context"
	"encoding/json"

	"estore/internal/event"
	"estore/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 他インスタンスへイベントを流す。event.Subscriberとして登録する
type RedisBridge struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBridge(rdb *redis.Client, channel string) *RedisBridge {
	if channel == "" {
		channel = "estore:events"
	}
	return &RedisBridge{rdb: rdb, channel: channel}
}

func (b *RedisBridge) Name() string { return "redis" }

func (b *RedisBridge) Handle(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// チャンネルを購読してfnに渡す。止める関数を返す
func (b *RedisBridge) Listen(ctx context.Context, fn func(context.Context, event.Event)) (func(context.Context) error, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	// 購読が確立するまで待つ
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e event.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					logger.Warn("redis event decode failed", zap.Error(err))
					continue
				}
				fn(ctx, e)
			}
		}
	}()

	return func(stopCtx context.Context) error {
		cancel()
		err := sub.Close()
		select {
		case <-done:
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
		return err
	}, nil
}
