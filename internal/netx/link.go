package netx

import "context"

// StaticLink reports a fixed link state, for hosts without a platform
// reachability API (desktop tooling, tests). The reachability probe still
// decides whether the device is actually online.
type StaticLink struct {
	Current State
}

// HostLink returns a StaticLink that always reports a connected link.
// The probe alone decides reachability.
func HostLink() StaticLink {
	return StaticLink{Current: State{Connected: true, InternetReachable: true, Type: "host"}}
}

func (l StaticLink) State(context.Context) (State, error) {
	return l.Current, nil
}
