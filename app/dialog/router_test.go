package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addUserForm struct {
	mu      sync.Mutex
	results map[int64]State
}

// register wires a three step "add user" form: username, quota, days.
func (f *addUserForm) register(r *Router) {
	r.RegisterStep(AwaitingNewUsername, func(ctx context.Context, chatID int64, text string, st State) error {
		r.SetState(chatID, State{Step: AwaitingNewQuota, Username: text})
		return nil
	})
	r.RegisterStep(AwaitingNewQuota, func(ctx context.Context, chatID int64, text string, st State) error {
		quota, err := strconv.Atoi(text)
		if err != nil {
			return Validation("traffic limit must be a number")
		}
		r.SetState(chatID, State{Step: AwaitingNewDays, Username: st.Username, QuotaGB: quota})
		return nil
	})
	r.RegisterStep(AwaitingNewDays, func(ctx context.Context, chatID int64, text string, st State) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.results[chatID] = st
		return nil
	})
}

func newTestRouter(commands map[string]Handler) (*Router, *addUserForm) {
	r := NewRouter(func(chatID int64, text string) (Handler, bool) {
		h, ok := commands[text]
		return h, ok
	})
	form := &addUserForm{results: map[int64]State{}}
	form.register(r)
	return r, form
}

func TestDispatchCommands(t *testing.T) {
	called := 0
	r, _ := newTestRouter(map[string]Handler{
		"📊 Server Info": func(ctx context.Context, chatID int64, text string) error {
			called++
			return nil
		},
		"💾 Backup Server": func(ctx context.Context, chatID int64, text string) error {
			return errors.New("backup failed")
		},
	})
	ctx := context.Background()

	res, err := r.Dispatch(ctx, 1, "📊 Server Info")
	require.NoError(t, err)
	assert.Equal(t, Handled, res)
	assert.Equal(t, 1, called)

	res, err = r.Dispatch(ctx, 1, "💾 Backup Server")
	assert.Equal(t, Handled, res)
	assert.EqualError(t, err, "backup failed")

	res, err = r.Dispatch(ctx, 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, Unhandled, res)
}

func TestFormFlow(t *testing.T) {
	r, form := newTestRouter(nil)
	ctx := context.Background()

	r.SetState(5, State{Step: AwaitingNewUsername})
	for _, text := range []string{"alice", "50", "30"} {
		res, err := r.Dispatch(ctx, 5, text)
		require.NoError(t, err)
		assert.Equal(t, Handled, res)
	}
	assert.Equal(t, State{Step: AwaitingNewDays, Username: "alice", QuotaGB: 50}, form.results[5])
	_, pending := r.StateOf(5)
	assert.False(t, pending)
}

func TestValidationRearmsStep(t *testing.T) {
	r, form := newTestRouter(nil)
	ctx := context.Background()

	r.SetState(5, State{Step: AwaitingNewQuota, Username: "bob"})
	res, err := r.Dispatch(ctx, 5, "lots")
	assert.Equal(t, Handled, res)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "traffic limit must be a number", ValidationMessage(err))

	st, ok := r.StateOf(5)
	require.True(t, ok)
	assert.Equal(t, State{Step: AwaitingNewQuota, Username: "bob"}, st)

	_, err = r.Dispatch(ctx, 5, "20")
	require.NoError(t, err)
	_, err = r.Dispatch(ctx, 5, "10")
	require.NoError(t, err)
	assert.Equal(t, 20, form.results[5].QuotaGB)
}

func TestCancelClearsState(t *testing.T) {
	r, _ := newTestRouter(nil)
	r.SetState(5, State{Step: AwaitingNewQuota, Username: "bob"})

	res, err := r.Dispatch(context.Background(), 5, "/cancel")
	require.NoError(t, err)
	assert.Equal(t, Handled, res)
	_, ok := r.StateOf(5)
	assert.False(t, ok)

	res, _ = r.Dispatch(context.Background(), 5, "/cancel")
	assert.Equal(t, Handled, res)
}

func TestStateClearedBeforeStepRuns(t *testing.T) {
	r := NewRouter(nil)
	var seen bool
	r.RegisterStep(AwaitingHelpMessage, func(ctx context.Context, chatID int64, text string, st State) error {
		_, seen = r.StateOf(chatID)
		return nil
	})
	r.SetState(9, State{Step: AwaitingHelpMessage})
	_, err := r.Dispatch(context.Background(), 9, "new help")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewStateReplacesOld(t *testing.T) {
	r, _ := newTestRouter(nil)
	r.SetState(5, State{Step: AwaitingNewQuota, Username: "bob"})
	r.SetState(5, State{Step: AwaitingBroadcastText, Audience: "all"})
	st, _ := r.StateOf(5)
	assert.Equal(t, AwaitingBroadcastText, st.Step)
	assert.Empty(t, st.Username)
	assert.Equal(t, "awaiting_broadcast_text", st.Step.String())
}

func TestConcurrentFormsDoNotMix(t *testing.T) {
	r, form := newTestRouter(nil)
	ctx := context.Background()
	chats := []int64{1, 2}
	for _, c := range chats {
		r.SetState(c, State{Step: AwaitingNewUsername})
	}

	var wg sync.WaitGroup
	for _, c := range chats {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			inputs := []string{fmt.Sprintf("user-%d", chatID), strconv.Itoa(int(chatID) * 100), "30"}
			for _, text := range inputs {
				_, err := r.Dispatch(ctx, chatID, text)
				assert.NoError(t, err)
				time.Sleep(time.Millisecond)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, "user-1", form.results[1].Username)
	assert.Equal(t, 100, form.results[1].QuotaGB)
	assert.Equal(t, "user-2", form.results[2].Username)
	assert.Equal(t, 200, form.results[2].QuotaGB)
}

func TestDispatchSerializesOneChat(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning := 0, 0
	r := NewRouter(func(chatID int64, text string) (Handler, bool) {
		return func(ctx context.Context, chatID int64, text string) error {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}, true
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Dispatch(context.Background(), 42, "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxRunning)
	assert.Empty(t, r.locks)
}
