package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"social-graph/internal/cache"
	"social-graph/internal/domain"
)

// Open creates a Redis client and pings it to validate the connection.
func Open(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// UserCache keeps user documents in Redis as JSON under user:id:<id>, with
// the write generation of each user under user:gen:<id>.
type UserCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewUserCache(client goredis.Cmdable, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

var _ cache.UserCache = (*UserCache)(nil)

// cachedUser mirrors domain.User with explicit JSON names so the cached
// encoding does not drift with the domain struct.
type cachedUser struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"password_hash"`
	ProfileImage    string    `json:"profile_img"`
	Bio             string    `json:"bio"`
	Followings      []string  `json:"followings"`
	Followers       []string  `json:"followers"`
	BookmarkedPosts []string  `json:"bookmarked_posts"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// generationTTL keeps generation counters well past any entry TTL.
const generationTTL = 24 * time.Hour

// fillScript stores ARGV[2] at KEYS[2] only while the generation at KEYS[1]
// still equals ARGV[1]. ARGV[3] is the entry TTL in milliseconds, 0 for none.
var fillScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then current = '0' end
if current ~= ARGV[1] then return 0 end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[2], ARGV[2])
else
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

func keyByID(id string) string { return "user:id:" + id }

func generationKey(id string) string { return "user:gen:" + id }

func (c *UserCache) Get(ctx context.Context, id string) (*domain.User, error) {
	v, err := c.client.Get(ctx, keyByID(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, cache.ErrMiss
		}
		return nil, err
	}
	var cu cachedUser
	if err := json.Unmarshal(v, &cu); err != nil {
		return nil, fmt.Errorf("decode cached user %s: %w", id, err)
	}
	return &domain.User{
		ID:              cu.ID,
		Username:        cu.Username,
		Email:           cu.Email,
		PasswordHash:    cu.PasswordHash,
		ProfileImage:    cu.ProfileImage,
		Bio:             cu.Bio,
		Followings:      nonNil(cu.Followings),
		Followers:       nonNil(cu.Followers),
		BookmarkedPosts: nonNil(cu.BookmarkedPosts),
		CreatedAt:       cu.CreatedAt,
		UpdatedAt:       cu.UpdatedAt,
	}, nil
}

func (c *UserCache) Generation(ctx context.Context, id string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *UserCache) SetIfGeneration(ctx context.Context, u *domain.User, generation int64) (bool, error) {
	b, err := json.Marshal(cachedUser{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		ProfileImage:    u.ProfileImage,
		Bio:             u.Bio,
		Followings:      u.Followings,
		Followers:       u.Followers,
		BookmarkedPosts: u.BookmarkedPosts,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	})
	if err != nil {
		return false, err
	}

	stored, err := fillScript.Run(ctx, c.client,
		[]string{generationKey(u.ID), keyByID(u.ID)},
		strconv.FormatInt(generation, 10), string(b), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("fill cached user %s: %w", u.ID, err)
	}
	return stored == 1, nil
}

// Invalidate drops the entries of ids and bumps their generations, so fills
// that started before the call are discarded.
func (c *UserCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), generationTTL)
			pipe.Del(ctx, keyByID(id))
		}
		return nil
	})
	return err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
