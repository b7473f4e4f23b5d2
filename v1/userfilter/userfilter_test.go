package userfilter

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/memory"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

type testUser struct {
	name      string
	anonymous bool
}

func (u *testUser) IsAnonymous() bool { return u.anonymous }

type session struct{ user any }

func (s session) User() any { return s.user }

type panickyCarrier struct{}

func (panickyCarrier) User() any { panic("no session") }

var (
	errUserIsNil       = errors.New("user is nil")
	errUserIsAnonymous = errors.New("user is anonymous")
)

func manager() *memory.Collection {
	return memory.New("rows", []memory.Row{
		{"id": 1, "a": 24},
		{"id": 2, "a": 42},
	})
}

func count(t *testing.T, c flexquery.Collection) int {
	t.Helper()
	mc, ok := c.(*memory.Collection)
	require.True(t, ok, "expected *memory.Collection, got %T", c)
	n, err := mc.Count()
	require.NoError(t, err)
	return n
}

func TestResolveUser(t *testing.T) {
	alice := &testUser{name: "alice"}

	r := httptest.NewRequest("GET", "/", nil)
	withAlice := r.WithContext(WithUser(context.Background(), alice))

	var nilUser *testUser

	tests := []struct {
		name string
		arg  any
		want any
	}{
		{"plain user", alice, alice},
		{"request with user", withAlice, alice},
		{"request without user", r, nil},
		{"carrier", session{user: alice}, alice},
		{"carrier without user", session{}, nil},
		{"panicking carrier", panickyCarrier{}, nil},
		{"nil", nil, nil},
		{"typed nil", nilUser, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveUser(tt.arg))
		})
	}
}

func TestForUser(t *testing.T) {
	var seen []any
	fn := func(args ...any) predicate.Q {
		seen = args
		return predicate.Lookup("a", 42)
	}

	anon := &testUser{anonymous: true}
	r := httptest.NewRequest("GET", "/", nil)

	tests := []struct {
		name   string
		cfg    ForUserConfig
		arg    any
		want   int
		called bool
	}{
		{"user", ForUserConfig{}, anon, 1, true},
		{"request with user", ForUserConfig{}, r.WithContext(WithUser(r.Context(), anon)), 1, true},
		{"request without user", ForUserConfig{AllIfNoUser: true}, r, 2, false},
		{"no user shows all", ForUserConfig{AllIfNoUser: true}, nil, 2, false},
		{"no user shows nothing", ForUserConfig{}, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			d, err := ForUserPredicate(fn, tt.cfg)
			require.NoError(t, err)

			b, err := flexquery.Bind(d, manager())
			require.NoError(t, err)

			assert.Equal(t, tt.want, count(t, b.Call(tt.arg)))
			if tt.called {
				assert.Equal(t, []any{anon}, seen, "the resolved user replaces the first argument")
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestForUser_CollectionAndExtraArguments(t *testing.T) {
	d, err := ForUserCollection(func(base flexquery.Collection, args ...any) flexquery.Collection {
		require.Len(t, args, 2)
		return base.Filter(predicate.Lookup("a__gte", args[1]))
	}, ForUserConfig{})
	require.NoError(t, err)

	b, err := flexquery.Bind(d, manager())
	require.NoError(t, err)

	alice := &testUser{name: "alice"}
	assert.Equal(t, 1, count(t, b.Call(session{user: alice}, 30)))
	assert.Equal(t, 2, count(t, b.Call(alice, 0)))
	assert.Equal(t, 0, count(t, b.Call(nil, 0)))

	// As a predicate the missing user turns into pk__in over an empty collection.
	q := b.AsQ(nil)
	leaves := q.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, "pk__in", leaves[0].Key)
	assert.Equal(t, 0, count(t, manager().Filter(q)))
}

func TestUserBased(t *testing.T) {
	fn := func(base flexquery.Collection, args ...any) flexquery.Collection {
		user, _ := args[0].(*testUser)
		switch {
		case args[0] == nil:
			panic(errUserIsNil)
		case user.anonymous:
			panic(errUserIsAnonymous)
		}
		return base.Filter(predicate.Lookup("a", 42))
	}

	anon := &testUser{anonymous: true}
	r := httptest.NewRequest("GET", "/", nil)

	tests := []struct {
		name      string
		cfg       UserBasedConfig
		arg       any
		want      int
		wantPanic error
	}{
		{"user", DefaultUserBasedConfig(), &testUser{name: "bob"}, 1, nil},
		{"request with user", DefaultUserBasedConfig(), r.WithContext(WithUser(r.Context(), &testUser{name: "bob"})), 1, nil},
		{"request without user", DefaultUserBasedConfig(), r, 0, nil},
		{"never match", DefaultUserBasedConfig(), nil, 0, nil},
		{"always true", UserBasedConfig{NoUserBehavior: AlwaysTrue}, nil, 2, nil},
		{"pass through", UserBasedConfig{NoUserBehavior: PassThrough}, nil, 0, errUserIsNil},
		{"anonymous passed", DefaultUserBasedConfig(), r.WithContext(WithUser(r.Context(), anon)), 0, errUserIsAnonymous},
		{"anonymous passed by zero config", UserBasedConfig{}, anon, 0, errUserIsAnonymous},
		{"anonymous as no user", UserBasedConfig{TreatAnonymousAsMissing: true}, r.WithContext(WithUser(r.Context(), anon)), 0, nil},
		{"anonymous as no user, always true", UserBasedConfig{NoUserBehavior: AlwaysTrue, TreatAnonymousAsMissing: true}, anon, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := UserBasedCollection(fn, tt.cfg)
			require.NoError(t, err)

			b, err := flexquery.Bind(d, manager())
			require.NoError(t, err)

			if tt.wantPanic != nil {
				assert.PanicsWithError(t, tt.wantPanic.Error(), func() { b.Call(tt.arg) })
				return
			}
			assert.Equal(t, tt.want, count(t, b.Call(tt.arg)))
		})
	}
}

func TestUserBased_Predicate(t *testing.T) {
	d, err := UserBasedPredicate(func(args ...any) predicate.Q {
		return predicate.Lookup("a", 24)
	}, DefaultUserBasedConfig(), flexquery.WithName("ownRows"))
	require.NoError(t, err)
	assert.Equal(t, "ownRows", d.Name())

	b, err := flexquery.Bind(d, manager())
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, b.Call("someone")))
	assert.True(t, b.AsQ("someone").Equal(predicate.Lookup("a", 24)))
}

func TestNoUserBehavior_Text(t *testing.T) {
	for _, b := range []NoUserBehavior{NeverMatch, AlwaysTrue, PassThrough} {
		text, err := b.MarshalText()
		require.NoError(t, err)

		var got NoUserBehavior
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, b, got)
	}

	var b NoUserBehavior
	assert.ErrorIs(t, b.UnmarshalText([]byte("sometimes")), ErrInvalidBehavior)
	_, err := NoUserBehavior(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidBehavior)
	assert.Equal(t, "NoUserBehavior(7)", NoUserBehavior(7).String())
}

func TestUserBasedConfig_YAML(t *testing.T) {
	var cfg UserBasedConfig
	err := yaml.Unmarshal([]byte("no_user_behavior: always_true\npass_anonymous_user: false\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, UserBasedConfig{NoUserBehavior: AlwaysTrue}, cfg)

	var forUser ForUserConfig
	require.NoError(t, yaml.Unmarshal([]byte("all_if_no_user: true\n"), &forUser))
	assert.True(t, forUser.AllIfNoUser)

	err = yaml.Unmarshal([]byte("no_user_behavior: sometimes\n"), &cfg)
	assert.ErrorIs(t, err, ErrInvalidBehavior)
}
