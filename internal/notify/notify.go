// Package notify publishes build results to NATS.
package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

const connectTimeout = 5 * time.Second

// Publisher is the subset of *nats.Conn used by Notifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TaskResult is one task line of a BuildMessage.
type TaskResult struct {
	Task       string `json:"task"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Files      int    `json:"files"`
	Error      string `json:"error,omitempty"`
}

// BuildMessage is the JSON document published when a build completes.
type BuildMessage struct {
	BuildID    string       `json:"build_id"`
	Graph      string       `json:"graph"`
	Mode       string       `json:"mode"`
	Outcome    string       `json:"outcome"`
	DurationMS int64        `json:"duration_ms"`
	Files      int          `json:"files"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Tasks      []TaskResult `json:"tasks"`
}

// NewBuildMessage summarizes a finished report.
func NewBuildMessage(r *build.Report) BuildMessage {
	tasks := r.Tasks()
	msg := BuildMessage{
		BuildID:    r.BuildID,
		Graph:      r.Graph,
		Mode:       string(r.Mode),
		Outcome:    string(r.Outcome),
		DurationMS: r.Duration().Milliseconds(),
		Files:      r.Files(),
		StartedAt:  r.Start,
		FinishedAt: r.End,
		Tasks:      make([]TaskResult, 0, len(tasks)),
	}
	for _, t := range tasks {
		msg.Tasks = append(msg.Tasks, TaskResult{
			Task:       string(t.Task),
			Result:     string(t.Result),
			DurationMS: t.Duration.Milliseconds(),
			Files:      t.Files,
			Error:      t.Error,
		})
	}
	return msg
}

// Notifier is a build.Observer publishing a BuildMessage for every
// completed build. Publishing never fails the build.
type Notifier struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

var _ build.Observer = (*Notifier)(nil)

// New wraps an existing publisher.
func New(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject}
}

// Connect dials cfg.NATSURL. It returns nil, nil when notifications are
// not configured.
func Connect(cfg config.NotifyConfig) (*Notifier, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("sitebuilder"),
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Build()
	}
	slog.Info("Build notifications enabled",
		slog.String("url", cfg.NATSURL),
		slog.String("subject", cfg.Subject))
	n := New(conn, cfg.Subject)
	n.conn = conn
	return n, nil
}

// Publish sends msg to the configured subject.
func (n *Notifier) Publish(msg BuildMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to marshal build message").
			WithContext("build_id", msg.BuildID).
			Build()
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to publish build message").
			Warning().
			WithContext("build_id", msg.BuildID).
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

// Close drains the connection opened by Connect.
func (n *Notifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

func (n *Notifier) OnBuildStart(*build.Report)                     {}
func (n *Notifier) OnTaskStart(*build.Report, build.TaskName)      {}
func (n *Notifier) OnTaskComplete(*build.Report, build.TaskRecord) {}

func (n *Notifier) OnBuildComplete(r *build.Report) {
	if err := n.Publish(NewBuildMessage(r)); err != nil {
		slog.Warn("Build notification failed", logfields.BuildID(r.BuildID), logfields.Error(err))
		return
	}
	slog.Debug("Build notification published", logfields.BuildID(r.BuildID), slog.String("subject", n.subject))
}
