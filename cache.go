package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

type cache struct {
	*redis.Client
	enabled bool
}

func newCache(conn *redis.Client, enabled bool) *cache {
	return &cache{
		Client:  conn,
		enabled: enabled && conn != nil,
	}
}

// get returns redis.Nil if the key does not exist or the cache is disabled
func (c *cache) get(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return redis.Nil
	}

	str, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(str), value)
}

func (c *cache) set(ctx context.Context, key string, value interface{}, expiration int) error {
	if !c.enabled {
		return nil
	}

	str, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, str, time.Duration(expiration)*time.Second).Err()
}

func (c *cache) del(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	return c.Del(ctx, keys...).Err()
}

// setList stores a paged SelectAll result and records its key in the query's metadata list so it can be invalidated
func (c *cache) setList(ctx context.Context, q *Query, objMap map[string]interface{}, dest interface{}, opts *SelectOptions) error {
	if !c.enabled {
		return nil
	}

	keyName := q.getKeyNameSelectOpts(objMap, opts)
	keyNameMetadata := q.getKeyNameMetadata(objMap)

	if err := c.set(ctx, keyName, dest, q.CacheTTL); err != nil {
		return err
	}

	_, err := c.LPos(ctx, keyNameMetadata, keyName, redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return c.RPush(ctx, keyNameMetadata, keyName).Err()
	}
	return err
}

// getList returns redis.Nil when the page isn't cached or its metadata list has expired
func (c *cache) getList(ctx context.Context, q *Query, objMap map[string]interface{}, dest interface{}, opts *SelectOptions) error {
	if !c.enabled {
		return redis.Nil
	}

	/*
		If the metadata key expired then the pages it tracked can no longer be invalidated,
		so treat them as missing
	*/
	exists, err := c.Exists(ctx, q.getKeyNameMetadata(objMap)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return redis.Nil
	}

	return c.get(ctx, q.getKeyNameSelectOpts(objMap, opts), dest)
}

// deleteList removes every cached page of the query along with its metadata list
func (c *cache) deleteList(ctx context.Context, q *Query, objMap map[string]interface{}) error {
	if !c.enabled {
		return nil
	}

	// deleting the key is never the wrong move
	keyNameMeta := q.getKeyNameMetadata(objMap)
	res, err := c.LRange(ctx, keyNameMeta, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	res = append(res, keyNameMeta, q.getKeyName(objMap))
	return c.del(ctx, res...)
}
