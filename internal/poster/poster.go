// Package poster is the scheduled unit of work: snapshot the term, make
// the bar image, then upload and post it through a publish.Session.
package poster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"termbot/internal/artifact"
	"termbot/internal/clock"
	"termbot/internal/progress"
	"termbot/internal/publish"
	"termbot/internal/task/engine"
	logx "termbot/pkg/logx"
)

var ErrEmptyImage = errors.New("producer returned an empty image")

type Config struct {
	Term progress.Term
	// Unit for the remaining count. Zero means one day.
	Unit     time.Duration
	Template string
	// ImagePath is overwritten on every run. Empty skips the file.
	ImagePath string
	Width     int
	Height    int
}

// Message is the data available to the post template.
type Message struct {
	Percent    string
	Percentage float64
	Remaining  int
	Start      time.Time
	End        time.Time
	Now        time.Time
}

type Poster struct {
	cfg      Config
	tmpl     *template.Template
	producer artifact.Producer
	session  publish.Session
	clk      clock.Clock
	log      logx.Logger

	mu   sync.Mutex
	last progress.Snapshot
}

func New(cfg Config, producer artifact.Producer, session publish.Session, clk clock.Clock, log logx.Logger) (*Poster, error) {
	if producer == nil {
		return nil, errors.New("poster: producer is nil")
	}
	if session == nil {
		return nil, errors.New("poster: session is nil")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Unit <= 0 {
		cfg.Unit = progress.Day
	}
	if cfg.Width <= 0 {
		cfg.Width = artifact.DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = artifact.DefaultHeight
	}
	tmpl, err := template.New("message").Option("missingkey=error").Parse(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("poster: template: %w", err)
	}
	return &Poster{
		cfg:      cfg,
		tmpl:     tmpl,
		producer: producer,
		session:  session,
		clk:      clk,
		log:      log.With(logx.String("comp", "poster")),
	}, nil
}

// Task wraps Run for the scheduler.
func (p *Poster) Task(name string) engine.Task {
	return engine.Task{Name: name, Run: p.Run}
}

// Run performs one post. Every attempt takes a fresh snapshot, so a retry
// after a delay reports the progress at retry time.
func (p *Poster) Run(ctx context.Context) error {
	snap := p.cfg.Term.Snapshot(p.clk.Now(), p.cfg.Unit)
	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	text, err := p.Render(snap)
	if err != nil {
		// A template that cannot execute fails the same way on every attempt.
		return engine.NoRetry(err)
	}

	img, err := p.producer.Produce(ctx, snap.Percentage, p.cfg.Width, p.cfg.Height)
	if err != nil {
		return fmt.Errorf("produce image: %w", err)
	}
	if len(img) == 0 {
		return ErrEmptyImage
	}
	if p.cfg.ImagePath != "" {
		if err := artifact.WriteFile(p.cfg.ImagePath, img); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		p.log.Info("image saved", logx.String("path", p.cfg.ImagePath), logx.Int("bytes", len(img)))
	}

	media, err := p.session.Upload(ctx, img)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := p.session.Post(ctx, text, media); err != nil {
		return fmt.Errorf("post: %w", err)
	}

	p.log.Info("posted",
		logx.Float64("percentage", snap.Percentage),
		logx.Int("remaining", snap.Remaining),
		logx.String("media_id", media.ID),
	)
	return nil
}

// Render executes the message template for s.
func (p *Poster) Render(s progress.Snapshot) (string, error) {
	var b strings.Builder
	err := p.tmpl.Execute(&b, Message{
		Percent:    progress.FormatPercent(s.Percentage),
		Percentage: s.Percentage,
		Remaining:  s.Remaining,
		Start:      p.cfg.Term.Start,
		End:        p.cfg.Term.End,
		Now:        s.At,
	})
	if err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return b.String(), nil
}

// Last returns the snapshot taken by the most recent attempt.
func (p *Poster) Last() progress.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
