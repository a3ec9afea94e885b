package diag

// Factory builds Diagnostic records. It carries no state today but is a
// struct (rather than free functions) so a future caller can thread a
// source-identity or default FHIR context through New without a
// breaking change.
type Factory struct{}

// NewFactory returns a ready-to-use Factory.
func NewFactory() Factory { return Factory{} }

// New builds a Diagnostic for code at pos, applying every option in order.
func (Factory) New(code Code, pos Position, opts ...Option) *Diagnostic {
	d := &Diagnostic{Code: code, Position: pos}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Option configures a Diagnostic's optional fields.
type Option func(*Diagnostic)

func WithInstanceOf(v string) Option     { return func(d *Diagnostic) { d.InstanceOf = v } }
func WithFHIRElement(v string) Option    { return func(d *Diagnostic) { d.FHIRElement = v } }
func WithFHIRParent(v string) Option     { return func(d *Diagnostic) { d.FHIRParent = v } }
func WithValue(v interface{}) Option     { return func(d *Diagnostic) { d.Value = v } }
func WithValueType(v string) Option      { return func(d *Diagnostic) { d.ValueType = v } }
func WithRegex(v string) Option          { return func(d *Diagnostic) { d.Regex = v } }
func WithMaxLength(v int) Option         { return func(d *Diagnostic) { d.MaxLength = v } }
func WithActualLength(v int) Option      { return func(d *Diagnostic) { d.ActualLength = v } }
func WithFHIRType(v string) Option       { return func(d *Diagnostic) { d.FHIRType = v } }
func WithToken(v string) Option          { return func(d *Diagnostic) { d.Token = v } }
func WithRemaining(v string) Option      { return func(d *Diagnostic) { d.Remaining = v } }
func WithStack(v string) Option          { return func(d *Diagnostic) { d.Stack = v } }
func WithUnderlying(err error) Option    { return func(d *Diagnostic) { d.Underlying = err } }
