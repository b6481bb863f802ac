package netx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	state State
	err   error
}

func (f *fakeLink) State(context.Context) (State, error) {
	return f.state, f.err
}

type fakeProber struct {
	err   error
	calls int
}

func (f *fakeProber) Probe(context.Context) error {
	f.calls++
	return f.err
}

func TestCheck_OnlineRequiresLinkAndProbe(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		link     *fakeLink
		probeErr error
		want     bool
	}{
		{
			name: "link up and probe ok",
			link: &fakeLink{state: State{Connected: true, InternetReachable: true, Type: "wifi"}},
			want: true,
		},
		{
			name: "link down",
			link: &fakeLink{state: State{Connected: false}},
			want: false,
		},
		{
			name:     "wifi without internet",
			link:     &fakeLink{state: State{Connected: true, InternetReachable: true, Type: "wifi"}},
			probeErr: errors.New("unreachable"),
			want:     false,
		},
		{
			name: "platform reports no internet",
			link: &fakeLink{state: State{Connected: true, Type: "cellular"}},
			want: false,
		},
		{
			name: "link query failure is offline",
			link: &fakeLink{err: errors.New("platform error")},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(tt.link, WithProber(&fakeProber{err: tt.probeErr}))
			assert.Equal(t, tt.want, m.Check(ctx))
			assert.Equal(t, tt.want, m.Online())
		})
	}
}

func TestCheck_PlatformUnreachableVetoSkipsProbe(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{}
	m := NewMonitor(&fakeLink{state: State{Connected: true, Type: "wifi"}}, WithProber(prober))

	assert.False(t, m.Check(ctx))
	assert.Equal(t, 0, prober.calls, "the platform's own verdict must short-circuit the probe")
}

func TestSubscribe_NotifiesOnTransitionsOnly(t *testing.T) {
	ctx := context.Background()
	link := &fakeLink{state: State{Connected: true, InternetReachable: true}}
	m := NewMonitor(link, WithProber(&fakeProber{}))

	var got []bool
	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })

	m.Check(ctx) // first sample: transition to online
	m.Check(ctx) // unchanged: no notification

	link.state.Connected = false
	m.Check(ctx) // transition to offline

	assert.Equal(t, []bool{true, false}, got)

	unsubscribe()
	link.state.Connected = true
	m.Check(ctx)
	assert.Equal(t, []bool{true, false}, got, "disposed subscriber must not fire")
}

func TestSubscribe_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	m := NewMonitor(&fakeLink{state: State{Connected: true, InternetReachable: true}}, WithProber(&fakeProber{}))

	delivered := 0
	m.Subscribe(func(bool) { panic("bad subscriber") })
	m.Subscribe(func(bool) { delivered++ })
	m.Subscribe(func(bool) { delivered++ })

	require.NotPanics(t, func() { m.Check(ctx) })
	assert.Equal(t, 2, delivered)
}

func TestUpdate_PushEventsDriveState(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{}
	m := NewMonitor(&fakeLink{}, WithProber(prober))

	m.Update(ctx, State{Connected: true, InternetReachable: true, Type: "cellular"})
	assert.True(t, m.Online())

	// disconnected push skips the probe entirely
	calls := prober.calls
	m.Update(ctx, State{Connected: false})
	assert.False(t, m.Online())
	assert.Equal(t, calls, prober.calls)

	// connected but the platform already says no internet: same short-circuit
	m.Update(ctx, State{Connected: true, InternetReachable: false, Type: "cellular"})
	assert.False(t, m.Online())
	assert.Equal(t, calls, prober.calls)
}

func TestHTTPProber_AgainstTestServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	require.NoError(t, p.Probe(context.Background()))
}
