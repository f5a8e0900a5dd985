package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamWriter struct {
	adds    []*redis.XAddArgs
	expires []string
	addErr  error
}

func (f *fakeStreamWriter) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.adds = append(f.adds, a)

	if f.addErr != nil {
		return redis.NewStringResult("", f.addErr)
	}

	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStreamWriter) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, key)
	return redis.NewBoolResult(true, nil)
}

func TestRedisSinkAppendsMessages(t *testing.T) {
	fake := &fakeStreamWriter{}
	sink := NewRedisSink(fake, "req-1")
	ctx := context.Background()

	require.NoError(t, sink.Send(ctx, Message{Label: LabelProcessing, Content: "분석 중"}))
	require.NoError(t, sink.Send(ctx, Message{Label: LabelFinal, Content: "done"}))

	require.Len(t, fake.adds, 2)
	assert.Equal(t, "agent:events:req-1", fake.adds[0].Stream)
	assert.True(t, fake.adds[0].Approx)
	assert.Equal(t, int64(defaultMaxLen), fake.adds[0].MaxLen)

	values, ok := fake.adds[1].Values.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "FINAL", values["label"])

	var decoded Message
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, "done", decoded.Content)

	// ttl is set once per stream
	assert.Equal(t, []string{"agent:events:req-1"}, fake.expires)
}

func TestRedisSinkReportsErrors(t *testing.T) {
	fake := &fakeStreamWriter{addErr: errors.New("connection refused")}
	sink := NewRedisSink(fake, "req-2")

	err := sink.Send(context.Background(), Message{Label: LabelError})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, fake.expires)
}
