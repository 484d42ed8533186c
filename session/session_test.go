package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	uid := int64(3)
	require.NoError(t, m.Save(ctx, Session{ID: "a", LoggedIn: true, UserID: &uid}, time.Minute))
	require.NoError(t, m.Save(ctx, Session{ID: "b"}, time.Hour))

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.LoggedIn)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSession)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionIdentity(t *testing.T) {
	uid := int64(9)
	id := Session{LoggedIn: true, UserID: &uid}.Identity()
	assert.True(t, id.LoggedIn)
	assert.Equal(t, uid, *id.UserID)

	assert.False(t, Session{}.Identity().LoggedIn)
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, "sid", true, time.Hour)

	// no cookie yields a blank session
	s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, s.ID)
	assert.False(t, s.LoggedIn)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(ctx, rec, &s))
	anon := cookieFrom(t, rec)
	assert.Equal(t, "sid", anon.Name)
	assert.True(t, anon.HttpOnly)
	assert.True(t, anon.Secure)
	assert.Equal(t, http.SameSiteLaxMode, anon.SameSite)

	rec = httptest.NewRecorder()
	require.NoError(t, m.Login(ctx, rec, &s, 42))
	logged := cookieFrom(t, rec)
	assert.NotEqual(t, anon.Value, logged.Value)
	_, err = store.Get(ctx, anon.Value)
	assert.ErrorIs(t, err, ErrNoSession)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(logged)
	loaded, err := m.Load(req)
	require.NoError(t, err)
	assert.True(t, loaded.LoggedIn)
	require.NotNil(t, loaded.UserID)
	assert.Equal(t, int64(42), *loaded.UserID)

	rec = httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, rec, &loaded))
	assert.Equal(t, -1, cookieFrom(t, rec).MaxAge)

	loaded, err = m.Load(req)
	require.NoError(t, err)
	assert.False(t, loaded.LoggedIn)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	store := NewRedisStore(client)
	store.prefix = "taskboard:test:session:"
	t.Cleanup(func() { _ = store.Close() })

	uid := int64(5)
	require.NoError(t, store.Save(ctx, Session{ID: "r1", LoggedIn: true, UserID: &uid}, time.Minute))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.LoggedIn)
	assert.Equal(t, uid, *got.UserID)

	ttl, err := client.TTL(ctx, store.prefix+"r1").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, store.Delete(ctx, "r1"))
	_, err = store.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNoSession)
}
