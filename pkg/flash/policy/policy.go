// Package policy maps a diagnostic code to a severity and decides, per a
// threshold configuration, whether the caller should validate, log,
// collect, or throw a given fault.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flashlang/flash-core/pkg/flash/diag"
)

// Config holds the four severity thresholds recognized as
// compiled-expression bindings.
type Config struct {
	ValidationLevel diag.Severity `yaml:"validationLevel"`
	LogLevel        diag.Severity `yaml:"logLevel"`
	CollectLevel    diag.Severity `yaml:"collectLevel"`
	ThrowLevel      diag.Severity `yaml:"throwLevel"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ValidationLevel: diag.Warning, // 30
		LogLevel:        diag.Notice,  // 40
		CollectLevel:    diag.Ceiling, // 70
		ThrowLevel:      diag.Warning, // 30
	}
}

// Option configures a Config.
type Option func(*Config)

func WithValidationLevel(s diag.Severity) Option { return func(c *Config) { c.ValidationLevel = s } }
func WithLogLevel(s diag.Severity) Option        { return func(c *Config) { c.LogLevel = s } }
func WithCollectLevel(s diag.Severity) Option    { return func(c *Config) { c.CollectLevel = s } }
func WithThrowLevel(s diag.Severity) Option      { return func(c *Config) { c.ThrowLevel = s } }

// NewConfig builds a Config starting from the defaults and applying opts
// in order.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LoadConfig reads a YAML threshold file, supplementing the programmatic
// functional-options path. Unset fields keep the documented defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("policy: reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("policy: parsing config %q: %w", path, err)
	}
	return c, nil
}

// Logger is the logging sink consulted by Enforce's "log" bucket. It is
// an external collaborator supplied by the surrounding engine; NoopLogger
// is the only implementation this package carries itself.
type Logger interface {
	Logf(format string, args ...interface{})
}

// NoopLogger discards every message.
type NoopLogger struct{}

// Logf implements Logger.
func (NoopLogger) Logf(string, ...interface{}) {}

// Policy is a view over a Config plus a diagnostics bag and logging
// sink, constructed fresh per evaluation run.
type Policy struct {
	cfg    Config
	logger Logger
	bag    []*diag.Diagnostic
}

// New constructs a Policy over cfg. A nil logger defaults to NoopLogger.
func New(cfg Config, logger Logger) *Policy {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Policy{cfg: cfg, logger: logger}
}

// ShouldValidate returns true iff code's severity is strictly less than
// the validation threshold.
func (p *Policy) ShouldValidate(code diag.Code) bool {
	return diag.SeverityFor(code) < p.cfg.ValidationLevel
}

// SeverityFor exposes the code→severity mapping through the policy view.
func (p *Policy) SeverityFor(code diag.Code) diag.Severity {
	return diag.SeverityFor(code)
}

// Enforce applies a fault under the policy: collects it if its severity
// is below CollectLevel, logs it if below LogLevel, and returns true iff
// its severity is below ThrowLevel — the caller must then propagate d as
// an error. S-codes bypass this gate entirely and should be raised
// or collected by the post-processor directly, not through Enforce.
func (p *Policy) Enforce(d *diag.Diagnostic) bool {
	sev := d.Severity()
	if sev < p.cfg.CollectLevel {
		p.bag = append(p.bag, d)
	}
	if sev < p.cfg.LogLevel {
		p.logger.Logf("%s: %s", d.Code, d.Error())
	}
	return sev < p.cfg.ThrowLevel
}

// Diagnostics returns every diagnostic collected so far, in emission
// order.
func (p *Policy) Diagnostics() []*diag.Diagnostic {
	return p.bag
}

// HasBlocking reports whether any collected diagnostic is at error,
// invalid, or fatal severity.
func (p *Policy) HasBlocking() bool {
	for _, d := range p.bag {
		if d.Severity() < diag.Warning {
			return true
		}
	}
	return false
}

// Status codes for an evaluation outcome envelope.
const (
	StatusOK      = 200 // clean success
	StatusPartial = 206 // collected warnings/notices
	StatusInvalid = 422 // collected errors/invalid/fatal
)

// Outcome is the verbose-evaluation envelope: OK is true only when no
// collected diagnostic reached error or warning severity, and Status
// reflects the worst band collected.
type Outcome struct {
	OK          bool
	Status      int
	Diagnostics []*diag.Diagnostic
}

// Outcome summarizes everything collected so far into the envelope a
// verbose evaluation returns alongside its result.
func (p *Policy) Outcome() Outcome {
	o := Outcome{Diagnostics: p.bag}
	switch {
	case p.HasBlocking():
		o.Status = StatusInvalid
	case p.HasWarning():
		o.Status = StatusPartial
	default:
		o.OK = true
		o.Status = StatusOK
	}
	return o
}

// HasWarning reports whether any collected diagnostic is at warning or
// notice severity.
func (p *Policy) HasWarning() bool {
	for _, d := range p.bag {
		s := d.Severity()
		if s >= diag.Warning && s < diag.Info {
			return true
		}
	}
	return false
}
