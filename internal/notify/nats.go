package notify

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
)

// DefaultNATSSubject prefixes the per-session subject.
const DefaultNATSSubject = "profilegen.progress"

// NATSConn is the subset of *nats.Conn used for publishing.
type NATSConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes progress messages on "<prefix>.<session id>".
type NATSPublisher struct {
	conn   NATSConn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher creates a NATSPublisher. An empty prefix means
// DefaultNATSSubject.
func NewNATSPublisher(conn NATSConn, prefix string, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultNATSSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject used for session id.
func (p *NATSPublisher) Subject(id string) string {
	return p.prefix + "." + id
}

// ForSession returns a Publisher bound to session id. Publish failures are
// logged and never reach the run.
func (p *NATSPublisher) ForSession(id string) orchestrator.Publisher {
	return orchestrator.PublisherFunc(func(ev orchestrator.ProgressEvent) {
		data, err := encode(id, ev)
		if err != nil {
			p.logger.Warn("encode progress message", zap.Error(err))
			return
		}
		if err := p.conn.Publish(p.Subject(id), data); err != nil {
			p.logger.Warn("nats publish failed",
				zap.String("subject", p.Subject(id)),
				zap.Error(err))
		}
	})
}

// DialNATS connects to url, retrying in the background if the server is
// not up yet.
func DialNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("profilegen"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect nats %s: %w", url, err)
	}
	return nc, nil
}
