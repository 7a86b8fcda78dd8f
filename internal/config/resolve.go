package config

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"termbot/internal/progress"
	"termbot/internal/task/engine"
	"termbot/internal/task/scheduler"
)

// Resolved holds the parsed form of a Config.
type Resolved struct {
	Location *time.Location
	Term     progress.Term
	Unit     time.Duration

	PollInterval     time.Duration
	Retry            engine.Policy
	ProducerTimeout  time.Duration
	PublisherTimeout time.Duration
	StorageBusy      time.Duration
}

// Validate checks everything that can be checked without credentials.
func (c *Config) Validate() error {
	_, err := c.Resolve()
	return err
}

// Resolve parses durations, dates and schedules. All problems are joined
// so a bad file reports every mistake at once.
func (c *Config) Resolve() (*Resolved, error) {
	var errs []error
	r := &Resolved{}

	loc, err := loadLocation(c.Scheduler.Timezone)
	if err != nil {
		errs = append(errs, err)
		loc = time.Local
	}
	r.Location = loc

	start, err := parseDate("term.start", c.Term.Start, loc)
	if err != nil {
		errs = append(errs, err)
	}
	end, err := parseDate("term.end", c.Term.End, loc)
	if err != nil {
		errs = append(errs, err)
	}
	if !start.IsZero() && !end.IsZero() {
		if r.Term, err = progress.NewTerm(start, end); err != nil {
			errs = append(errs, fmt.Errorf("term: %w", err))
		}
	}

	if r.Unit, err = ParseDurationOrDefault("term.unit", c.Term.Unit, DefaultUnit); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(c.Message.Template) == "" {
		errs = append(errs, errors.New("message.template is empty"))
	} else if _, err := template.New("message").Parse(c.Message.Template); err != nil {
		errs = append(errs, fmt.Errorf("message.template: %w", err))
	}

	if c.Image.Width < 0 || c.Image.Height < 0 {
		errs = append(errs, errors.New("image: width and height must be >= 0"))
	}

	switch d := strings.ToLower(strings.TrimSpace(c.Producer.Driver)); d {
	case "", "local", "remote":
	default:
		errs = append(errs, fmt.Errorf("producer.driver: unknown %q", d))
	}
	if r.ProducerTimeout, err = ParseDurationOrDefault("producer.timeout", c.Producer.Timeout, DefaultTimeout); err != nil {
		errs = append(errs, err)
	}

	switch d := strings.ToLower(strings.TrimSpace(c.Publisher.Driver)); d {
	case "", "twitter":
	case "telegram":
		if c.Publisher.ChatID == 0 {
			errs = append(errs, errors.New("publisher.chat_id is required for telegram"))
		}
	default:
		errs = append(errs, fmt.Errorf("publisher.driver: unknown %q", d))
	}
	if r.PublisherTimeout, err = ParseDurationOrDefault("publisher.timeout", c.Publisher.Timeout, DefaultTimeout); err != nil {
		errs = append(errs, err)
	}

	if r.PollInterval, err = ParseDurationOrDefault("scheduler.poll_interval", c.Scheduler.PollInterval, DefaultPollInterval); err != nil {
		errs = append(errs, err)
	}
	if len(c.Scheduler.Tasks) == 0 {
		errs = append(errs, errors.New("scheduler.tasks is empty"))
	}
	seen := make(map[string]bool, len(c.Scheduler.Tasks))
	for i, t := range c.Scheduler.Tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("scheduler.tasks[%d]: name is required", i))
		} else if seen[name] {
			errs = append(errs, fmt.Errorf("scheduler.tasks[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if _, err := scheduler.ParseSchedule(t.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.tasks[%d]: %w", i, err))
		}
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts must be >= 0"))
	}
	attempts := c.Retry.MaxAttempts
	if attempts == 0 {
		attempts = DefaultRetryMax
	}
	delay, err := ParseDurationOrDefault("retry.delay", c.Retry.Delay, DefaultRetryDelay)
	if err != nil {
		errs = append(errs, err)
	}
	r.Retry = engine.Policy{MaxAttempts: attempts, Delay: delay}

	if c.Logging.Telegram.Enabled && c.Logging.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("logging.telegram.chat_id is required when enabled"))
	}

	if s := c.Storage; s != nil {
		switch d := strings.ToLower(strings.TrimSpace(s.Driver)); d {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, errors.New("storage.path is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown %q", d))
		}
		if r.StorageBusy, err = ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

func parseDate(path, raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", path)
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q (want 2006-01-02 or RFC 3339)", path, raw)
	}
	return t, nil
}
