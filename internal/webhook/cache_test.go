// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/runicbabble/runicbabble/internal/store"
	"github.com/runicbabble/runicbabble/pkg/errutil"
)

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code, Status: http.StatusText(code)}}
}

type fakeAPI struct {
	mu       sync.Mutex
	existing map[string][]*discordgo.Webhook
	created  atomic.Int32
	executed []*discordgo.WebhookParams
	execIDs  []string

	listErr   error
	createErr error
	// execErrs are returned by successive WebhookExecute calls.
	execErrs []error
	// createDelay widens the window for concurrent creators.
	createDelay time.Duration
}

func (f *fakeAPI) ChannelWebhooks(channelID string, _ ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[channelID], nil
}

func (f *fakeAPI) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	time.Sleep(f.createDelay)
	n := f.created.Add(1)
	return &discordgo.Webhook{
		ID:        fmt.Sprintf("hook-%d", n),
		Token:     fmt.Sprintf("token-%d", n),
		Name:      name,
		ChannelID: channelID,
	}, nil
}

func (f *fakeAPI) WebhookExecute(webhookID, _ string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.execErrs) > 0 {
		err := f.execErrs[0]
		f.execErrs = f.execErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.executed = append(f.executed, data)
	f.execIDs = append(f.execIDs, webhookID)
	return &discordgo.Message{}, nil
}

type memStore struct {
	mu    sync.Mutex
	hooks map[string]store.Webhook
	err   error
}

func newMemStore() *memStore { return &memStore{hooks: map[string]store.Webhook{}} }

func (m *memStore) Get(_ context.Context, channelID string) (store.Webhook, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.Webhook{}, false, m.err
	}
	w, ok := m.hooks[channelID]
	return w, ok, nil
}

func (m *memStore) Put(_ context.Context, w store.Webhook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[w.ChannelID] = w
	return m.err
}

func (m *memStore) Delete(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hooks, channelID)
	return m.err
}

func TestName(t *testing.T) {
	assert.Equal(t, "runicbabble-42", Name("42"))
}

func TestCache_CreatesOnce(t *testing.T) {
	api := &fakeAPI{}
	st := newMemStore()
	c := NewCache(api, st)
	ctx := context.Background()

	w1, err := c.Get(ctx, "1")
	require.NoError(t, err)
	w2, err := c.Get(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, w1, w2)
	assert.Equal(t, int32(1), api.created.Load())
	assert.Equal(t, store.Webhook{ChannelID: "1", ID: "hook-1", Token: "token-1"}, st.hooks["1"])
}

func TestCache_ReusesExistingWebhook(t *testing.T) {
	api := &fakeAPI{existing: map[string][]*discordgo.Webhook{
		"1": {
			{ID: "other", Name: "someone-else", Token: "x"},
			{ID: "tokenless", Name: Name("1")},
			{ID: "mine", Name: Name("1"), Token: "secret"},
		},
	}}
	c := NewCache(api, nil)

	w, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "mine", w.ID)
	assert.Equal(t, "secret", w.Token)
	assert.Zero(t, api.created.Load())
}

func TestCache_LoadsFromStore(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("must not list")}
	st := newMemStore()
	st.hooks["1"] = store.Webhook{ChannelID: "1", ID: "stored", Token: "t"}
	c := NewCache(api, st)

	w, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "stored", w.ID)
	assert.Equal(t, 1, c.Len())
}

func TestCache_StoreFailureIsNotFatal(t *testing.T) {
	api := &fakeAPI{}
	st := newMemStore()
	st.err = errors.New("disk full")
	c := NewCache(api, st)

	w, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "hook-1", w.ID)
}

func TestCache_ConcurrentFirstMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{createDelay: 20 * time.Millisecond}
	c := NewCache(api, newMemStore())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.created.Load())
}

func TestCache_Post(t *testing.T) {
	api := &fakeAPI{}
	c := NewCache(api, nil)

	err := c.Post(context.Background(), "1", Message{
		Content:   ":a:",
		Username:  "Ada",
		AvatarURL: "https://cdn.example/ada.png",
	})
	require.NoError(t, err)

	require.Len(t, api.executed, 1)
	params := api.executed[0]
	assert.Equal(t, ":a:", params.Content)
	assert.Equal(t, "Ada", params.Username)
	assert.Equal(t, "https://cdn.example/ada.png", params.AvatarURL)
	require.NotNil(t, params.AllowedMentions)
	assert.Empty(t, params.AllowedMentions.Parse)
}

func TestCache_PostRecreatesMissingWebhook(t *testing.T) {
	api := &fakeAPI{execErrs: []error{restError(http.StatusNotFound)}}
	st := newMemStore()
	c := NewCache(api, st)

	require.NoError(t, c.Post(context.Background(), "1", Message{Content: "x"}))

	assert.Equal(t, int32(2), api.created.Load())
	assert.Equal(t, []string{"hook-2"}, api.execIDs)
	assert.Equal(t, "hook-2", st.hooks["1"].ID)
}

func TestCache_PostGivesUpAfterOneRecreate(t *testing.T) {
	api := &fakeAPI{execErrs: []error{restError(http.StatusNotFound), restError(http.StatusNotFound)}}
	c := NewCache(api, nil)

	err := c.Post(context.Background(), "1", Message{Content: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPostingDenied)
	assert.Equal(t, int32(2), api.created.Load())
}

func TestCache_PostingDenied(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot list webhooks", func(t *testing.T) {
		c := NewCache(&fakeAPI{listErr: restError(http.StatusForbidden)}, nil)
		err := c.Post(ctx, "1", Message{Content: "x"})
		assert.ErrorIs(t, err, ErrPostingDenied)
		errutil.AssertErrorCode(t, err, CodePostingDenied)
		errutil.AssertErrorContext(t, err, "operation", "list webhooks")
	})

	t.Run("cannot create webhook", func(t *testing.T) {
		c := NewCache(&fakeAPI{createErr: restError(http.StatusForbidden)}, nil)
		err := c.Post(ctx, "1", Message{Content: "x"})
		assert.ErrorIs(t, err, ErrPostingDenied)
	})

	t.Run("cannot execute webhook", func(t *testing.T) {
		c := NewCache(&fakeAPI{execErrs: []error{restError(http.StatusForbidden)}}, nil)
		err := c.Post(ctx, "1", Message{Content: "x"})
		assert.ErrorIs(t, err, ErrPostingDenied)
		errutil.AssertErrorContext(t, err, "channel_id", "1")
	})

	t.Run("other failures are not denials", func(t *testing.T) {
		c := NewCache(&fakeAPI{listErr: restError(http.StatusInternalServerError)}, nil)
		err := c.Post(ctx, "1", Message{Content: "x"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPostingDenied)
	})
}

func TestCache_Forget(t *testing.T) {
	st := newMemStore()
	c := NewCache(&fakeAPI{}, st)
	ctx := context.Background()

	_, err := c.Get(ctx, "1")
	require.NoError(t, err)
	c.Forget(ctx, "1")

	assert.Zero(t, c.Len())
	assert.NotContains(t, st.hooks, "1")
}
