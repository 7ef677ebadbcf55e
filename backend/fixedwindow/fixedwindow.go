// Package fixedwindow implements a Redis-backed ratelimit.Backend using
// the classic INCR-then-EXPIRE fixed window counter, atomically combined
// with the blocking check in a single Lua script.
package fixedwindow

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/alfreddev/ratelimit"
	"github.com/redis/go-redis/v9"
)

//go:embed fixedwindow.lua
var script string

// Backend is a ratelimit.Backend backed by Redis fixed-window counters.
type Backend struct {
	client redis.UniversalClient
	script *redis.Script
}

// New returns a Backend using client for storage.
func New(client redis.UniversalClient) *Backend {
	return &Backend{client: client, script: redis.NewScript(script)}
}

var _ ratelimit.Backend = (*Backend)(nil)

// RetryAfter implements ratelimit.Backend.
func (b *Backend) RetryAfter(ctx context.Context, pathOrZone, user string, rule ratelimit.Rule) (int, error) {
	windowKeys := rule.Ruleset(pathOrZone, user)
	if len(windowKeys) == 0 {
		return 0, nil
	}

	keys := make([]string, len(windowKeys))
	args := make([]interface{}, 0, len(windowKeys)*2+2)
	for i, wk := range windowKeys {
		keys[i] = wk.Key
		args = append(args, wk.Limit, int(wk.Window.Seconds()))
	}
	args = append(args, ratelimit.BlockingKey(user), int(rule.BlockDuration().Seconds()))

	raw, err := b.run(ctx, keys, args)
	if err != nil {
		return 0, fmt.Errorf("fixedwindow: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok {
		return 0, fmt.Errorf("fixedwindow: unexpected script result type %T", raw)
	}

	if len(values) == 3 {
		if count, ok := toInt(values[0]); ok && count == -1 {
			blockTTL, _ := toInt(values[1])
			return blockTTL, nil
		}
	}

	for i := range windowKeys {
		count, _ := toInt(values[i*3])
		limit, _ := toInt(values[i*3+1])
		ttl, _ := toInt(values[i*3+2])
		if count > limit {
			if blockSeconds := int(rule.BlockDuration().Seconds()); blockSeconds > 0 {
				return blockSeconds, nil
			}
			if ttl < 1 {
				ttl = 1
			}
			return ttl, nil
		}
	}

	return 0, nil
}

func (b *Backend) run(ctx context.Context, keys []string, args []interface{}) (interface{}, error) {
	result, err := b.script.Run(ctx, b.client, keys, args...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil && isNoScript(err) {
		if _, loadErr := b.script.Load(ctx, b.client).Result(); loadErr != nil {
			return nil, fmt.Errorf("load script: %w", loadErr)
		}
		result, err = b.script.Run(ctx, b.client, keys, args...).Result()
	}
	return result, err
}

func isNoScript(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "NOSCRIPT"
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
