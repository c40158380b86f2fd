package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/api"
)

// fakeRefresher считает вызовы и возвращает заданный токен
type fakeRefresher struct {
	calls   atomic.Int32
	token   string
	cookies []string
	delay   time.Duration
	cookie  atomic.Value
}

func (f *fakeRefresher) RefreshTokens(ctx context.Context, cookie string) (*api.RefreshResult, error) {
	f.calls.Add(1)
	f.cookie.Store(cookie)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &api.RefreshResult{AccessToken: f.token, SetCookies: f.cookies}, nil
}

// TestContext проверяет хранение токена и id сессии в контексте
func TestContext(t *testing.T) {
	ctx := context.Background()
	_, ok := AccessToken(ctx)
	assert.False(t, ok)

	ctx = WithAccessToken(ctx, "tok")
	token, ok := AccessToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	_, ok = AccessToken(WithAccessToken(context.Background(), ""))
	assert.False(t, ok)

	id, ok := ID(WithID(ctx, "sid"))
	assert.True(t, ok)
	assert.Equal(t, "sid", id)
}

// TestSession_CachedToken проверяет, что заполненный слот не вызывает обновление
func TestSession_CachedToken(t *testing.T) {
	r := &fakeRefresher{token: "fresh"}
	s := New(r, "cached", "refresh=1")

	token, err := s.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	assert.Equal(t, int32(0), r.calls.Load())
}

// TestSession_CoalescedRefresh проверяет единственное обновление при параллельных вызовах
func TestSession_CoalescedRefresh(t *testing.T) {
	r := &fakeRefresher{token: "fresh", delay: 50 * time.Millisecond}
	s := New(r, "", "refresh=1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := s.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "fresh", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, "refresh=1", r.cookie.Load())
}

// TestSession_Unauthenticated проверяет ошибку при пустом ответе обновления
func TestSession_Unauthenticated(t *testing.T) {
	s := New(&fakeRefresher{}, "", "")

	_, err := s.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// TestSession_ExpireAndRotation проверяет повторное обновление и слияние cookie
func TestSession_ExpireAndRotation(t *testing.T) {
	r := &fakeRefresher{token: "second", cookies: []string{"refresh=2; Path=/; HttpOnly"}}
	s := New(r, "first", "refresh=1; theme=dark")

	s.Expire()
	token, err := s.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", token)
	assert.Equal(t, "refresh=2; theme=dark", s.Cookie())

	s.Clear()
	assert.Equal(t, "", s.Cookie())
}

// TestMergeCookies проверяет применение Set-Cookie к заголовку Cookie
func TestMergeCookies(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setCookies []string
		expected   string
	}{
		{"replace", "a=1; b=2", []string{"a=3; Path=/"}, "a=3; b=2"},
		{"append", "a=1", []string{"c=4"}, "a=1; c=4"},
		{"expire by max-age", "a=1; b=2", []string{"a=; Max-Age=0"}, "b=2"},
		{"expire by date", "a=1; b=2", []string{"b=; Expires=Thu, 01 Jan 1970 00:00:00 GMT"}, "a=1"},
		{"empty header", "", []string{"a=1"}, "a=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeCookies(tt.header, tt.setCookies))
		})
	}
}

// TestStore проверяет создание, обновление и вытеснение сессий
func TestStore(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewStore(&fakeRefresher{}, time.Minute, logger.NewNop(), nil)
	store.now = func() time.Time { return now }

	first := store.Touch("a", "t1", "c1")
	again := store.Touch("a", "t2", "")
	assert.Same(t, first, again)

	token, err := again.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", token)
	assert.Equal(t, "c1", again.Cookie())

	store.Touch("b", "t3", "c3")
	assert.Equal(t, 2, store.Len())

	now = now.Add(30 * time.Second)
	_, ok := store.Get("b")
	assert.True(t, ok)

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, store.Evict())
	_, ok = store.Get("a")
	assert.False(t, ok)

	store.Delete("b")
	assert.Equal(t, 0, store.Len())
}

// TestStore_OnEvict проверяет уведомление об удаленных сессиях
func TestStore_OnEvict(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewStore(&fakeRefresher{}, time.Minute, logger.NewNop(), nil)
	store.now = func() time.Time { return now }

	var evicted []string
	store.OnEvict(func(id string) { evicted = append(evicted, id) })

	store.Touch("idle", "t1", "")
	now = now.Add(30 * time.Second)
	store.Touch("active", "t2", "")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, store.Evict())
	assert.Equal(t, []string{"idle"}, evicted)

	store.Delete("active")
	store.Delete("missing")
	assert.Equal(t, []string{"idle", "active"}, evicted)
}
