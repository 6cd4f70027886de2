package history

import (
	"context"
	"encoding/json"
	"strconv"

	"alicebot/pkg/cache"
	"alicebot/pkg/persona"
)

// CachedStore mirrors the recent message window and persona state into
// Redis. The wrapped store stays the source of truth; every cache write
// is best effort.
type CachedStore struct {
	Store
	cache      *cache.Cache
	maxHistory int
}

func NewCachedStore(store Store, cache *cache.Cache, maxHistory int) *CachedStore {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &CachedStore{
		Store:      store,
		cache:      cache,
		maxHistory: maxHistory,
	}
}

func (c *CachedStore) historyKey(userID int64) string {
	return c.cache.Key("history", strconv.FormatInt(userID, 10))
}

func (c *CachedStore) personaKey(userID int64) string {
	return c.cache.Key("persona", strconv.FormatInt(userID, 10))
}

func (c *CachedStore) Append(userID int64, role, content string, metadata map[string]string) (Message, error) {
	msg, err := c.Store.Append(userID, role, content, metadata)
	if err != nil {
		return msg, err
	}

	ctx := context.Background()
	key := c.historyKey(userID)

	msgJSON, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return msg, nil
	}
	if pushErr := c.cache.LPush(ctx, key, string(msgJSON)); pushErr != nil {
		return msg, nil
	}
	_ = c.cache.LTrim(ctx, key, 0, int64(c.maxHistory*2-1))
	_ = c.cache.Expire(ctx, key, cache.HistoryTTL)

	return msg, nil
}

func (c *CachedStore) Recent(userID int64, limit int) ([]Message, error) {
	ctx := context.Background()
	key := c.historyKey(userID)

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	data, err := c.cache.LRange(ctx, key, 0, stop)
	if err == nil && len(data) > 0 {
		var messages []Message
		for _, d := range data {
			var msg Message
			if unmarshalErr := json.Unmarshal([]byte(d), &msg); unmarshalErr != nil {
				continue
			}
			messages = append(messages, msg)
		}
		if len(messages) > 0 {
			// List is newest-first, callers expect chronological order
			for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
				messages[i], messages[j] = messages[j], messages[i]
			}
			return messages, nil
		}
	}

	messages, err := c.Store.Recent(userID, limit)
	if err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		for i := range messages {
			msgJSON, marshalErr := json.Marshal(messages[i])
			if marshalErr != nil {
				continue
			}
			if pushErr := c.cache.LPush(ctx, key, string(msgJSON)); pushErr != nil {
				break
			}
		}
		_ = c.cache.LTrim(ctx, key, 0, int64(c.maxHistory*2-1))
		_ = c.cache.Expire(ctx, key, cache.HistoryTTL)
	}

	return messages, nil
}

func (c *CachedStore) Clear(userID int64) error {
	if err := c.Store.Clear(userID); err != nil {
		return err
	}
	_ = c.cache.Delete(context.Background(), c.historyKey(userID))
	return nil
}

func (c *CachedStore) Persona(userID int64) persona.State {
	ctx := context.Background()

	var st persona.State
	if err := c.cache.GetJSON(ctx, c.personaKey(userID), &st); err == nil && st.Mood != "" {
		return st
	}

	st = c.Store.Persona(userID)
	_ = c.cache.SetJSON(ctx, c.personaKey(userID), st, cache.PersonaStateTTL)
	return st
}

func (c *CachedStore) SetPersona(userID int64, st persona.State) error {
	if err := c.Store.SetPersona(userID, st); err != nil {
		return err
	}
	_ = c.cache.SetJSON(context.Background(), c.personaKey(userID), st, cache.PersonaStateTTL)
	return nil
}
