package scene

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/pkg/natsutil"
)

// DefaultSubjectPrefix is the subject prefix batches are published under.
const DefaultSubjectPrefix = "scene.placements"

// NATSRenderer publishes each batch as JSON on <prefix>.<category>.
type NATSRenderer struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSRenderer creates a NATSRenderer. An empty prefix uses
// DefaultSubjectPrefix.
func NewNATSRenderer(nc *nats.Conn, prefix string) *NATSRenderer {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSRenderer{nc: nc, prefix: prefix}
}

// Subject returns the subject batches of category c are published on.
func (r *NATSRenderer) Subject(c domain.Category) string {
	return natsutil.Subject(r.prefix, string(c))
}

func (r *NATSRenderer) Render(ctx context.Context, b domain.Batch) error {
	if err := natsutil.Publish(ctx, r.nc, r.Subject(b.Category), b); err != nil {
		return fmt.Errorf("scene: publish batch: %w", err)
	}
	return nil
}

// SubscribeBatches delivers batches published under prefix to handler.
func SubscribeBatches(nc *nats.Conn, prefix string, handler func(context.Context, domain.Batch)) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return natsutil.Subscribe(nc, prefix+".>", handler)
}
