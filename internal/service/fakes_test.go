package service

import (
	"context"
)

type recordingPublisher struct{ events []RBACEvent }

func (p *recordingPublisher) Publish(_ context.Context, ev RBACEvent) {
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []EventType {
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type plainHasher struct{}

func (plainHasher) HashPassword(pw string) (string, error) { return "hashed:" + pw, nil }

type recordingRevoker struct {
	revoked []int
	err     error
}

func (r *recordingRevoker) RevokeAll(_ context.Context, userID int) error {
	r.revoked = append(r.revoked, userID)
	return r.err
}
