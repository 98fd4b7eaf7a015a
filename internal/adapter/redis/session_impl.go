package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
)

const (
	processedKey = "snapbot:processed" // list, oldest first
	sessionKey   = "snapbot:session"   // hash of credentials
)

// SessionRepoImpl provides a concrete implementation for the SessionStore interface using Redis.
type SessionRepoImpl struct {
	client *redis.Client
}

var _ repository.SessionStore = (*SessionRepoImpl)(nil)

// NewSessionRepo creates a new instance of SessionRepoImpl.
func NewSessionRepo(client *redis.Client) *SessionRepoImpl {
	return &SessionRepoImpl{client: client}
}

// Ping checks the connection.
func (r *SessionRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Load reads the processed list and the credential hash. Missing keys read
// as an empty state.
func (r *SessionRepoImpl) Load(ctx context.Context) (*entity.SessionState, error) {
	urls, err := r.client.LRange(ctx, processedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read processed list: %w", err)
	}
	fields, err := r.client.HGetAll(ctx, sessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session hash: %w", err)
	}

	state := entity.NewSessionState()
	for _, u := range urls {
		state.MarkProcessed(u)
	}
	state.Username = fields["username"]
	state.ImageHostKey = fields["image_host_key"]
	return state, nil
}

// Save replaces the stored record in one MULTI/EXEC transaction.
func (r *SessionRepoImpl) Save(ctx context.Context, state *entity.SessionState) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, processedKey, sessionKey)
		if len(state.Processed) > 0 {
			values := make([]interface{}, len(state.Processed))
			for i, u := range state.Processed {
				values[i] = u
			}
			pipe.RPush(ctx, processedKey, values...)
		}
		pipe.HSet(ctx, sessionKey, map[string]interface{}{
			"username":       state.Username,
			"image_host_key": state.ImageHostKey,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRepoImpl) Close() error {
	return r.client.Close()
}
