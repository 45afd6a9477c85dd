package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a scriptable Backend for router tests.
type fakeBackend struct {
	name      string
	available bool
	port      int
	costGB    int
	voices    []string
	generated []byte
	genErr    error
}

func (f *fakeBackend) Name() string                        { return f.name }
func (f *fakeBackend) Port() int                           { return f.port }
func (f *fakeBackend) CostGB() int                         { return f.costGB }
func (f *fakeBackend) IsAvailable(context.Context) bool    { return f.available }
func (f *fakeBackend) ListVoices(context.Context) []string { return f.voices }

func (f *fakeBackend) Generate(context.Context, GenerateRequest) ([]byte, error) {
	return f.generated, f.genErr
}

func TestRouterActive_RegistrationOrder(t *testing.T) {
	first := &fakeBackend{name: "first", available: true}
	second := &fakeBackend{name: "second", available: true}
	router := NewRouter(first, second)

	active, err := router.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", active.Name())
}

func TestRouterActive_SkipsUnavailable(t *testing.T) {
	first := &fakeBackend{name: "first", available: false}
	second := &fakeBackend{name: "second", available: true}
	router := NewRouter(first, second)

	active, err := router.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", active.Name())
}

func TestRouterActive_NoneAvailable(t *testing.T) {
	router := NewRouter(
		&fakeBackend{name: "first"},
		&fakeBackend{name: "second"},
	)

	_, err := router.Active(context.Background())
	assert.ErrorIs(t, err, ErrNoBackendAvailable)
}

func TestRouterActive_PreferredWins(t *testing.T) {
	first := &fakeBackend{name: "first", available: true}
	second := &fakeBackend{name: "second", available: true}
	router := NewRouter(first, second)

	require.NoError(t, router.SetPreferred("second"))

	active, err := router.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", active.Name())
}

func TestRouterActive_PreferredUnavailableFallsBack(t *testing.T) {
	first := &fakeBackend{name: "first", available: true}
	second := &fakeBackend{name: "second", available: false}
	router := NewRouter(first, second)

	require.NoError(t, router.SetPreferred("second"))

	active, err := router.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", active.Name())

	// The preference survives the fallback; it is not cleared.
	assert.Equal(t, "second", router.Preferred())
}

func TestRouterActive_RecoveryAfterOutage(t *testing.T) {
	b := &fakeBackend{name: "only", available: false}
	router := NewRouter(b)

	_, err := router.Active(context.Background())
	require.ErrorIs(t, err, ErrNoBackendAvailable)

	b.available = true

	active, err := router.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", active.Name())
}

func TestRouterSetPreferred(t *testing.T) {
	router := NewRouter(&fakeBackend{name: "known"})

	err := router.SetPreferred("bogus")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	require.NoError(t, router.SetPreferred("known"))
	assert.Equal(t, "known", router.Preferred())

	require.NoError(t, router.SetPreferred(""))
	assert.Empty(t, router.Preferred())
}

func TestRouterGet(t *testing.T) {
	known := &fakeBackend{name: "known"}
	router := NewRouter(known)

	got, err := router.Get("known")
	require.NoError(t, err)
	assert.Same(t, Backend(known), got)

	_, err = router.Get("missing")
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestRouterList(t *testing.T) {
	router := NewRouter(
		&fakeBackend{name: "down", available: false, port: 9000, costGB: 5},
		&fakeBackend{name: "up", available: true, port: 9001, costGB: 2},
	)

	statuses := router.List(context.Background())
	require.Len(t, statuses, 2)

	assert.Equal(t, "down", statuses[0].Name)
	assert.False(t, statuses[0].Available)
	assert.False(t, statuses[0].Active)

	assert.Equal(t, "up", statuses[1].Name)
	assert.True(t, statuses[1].Available)
	assert.True(t, statuses[1].Active)
	assert.Equal(t, 9001, statuses[1].Port)
	assert.Equal(t, 2, statuses[1].CostGB)
}
