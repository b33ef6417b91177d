package notify

import "context"

// Router sends email channels to Email and mobile channels to Mobile.
type Router struct {
	Email  Sender
	Mobile Sender
}

func (r *Router) Send(ctx context.Context, channel, subject, body string) error {
	target := r.Mobile
	if isEmail(channel) {
		target = r.Email
	}
	if target == nil {
		return ErrNoRoute
	}
	return target.Send(ctx, channel, subject, body)
}
