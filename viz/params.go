package viz

import "fmt"

// UserParam is a model parameter the user can adjust from the browser
// between runs. The server applies the current values on reset.
type UserParam interface {
	ParamName() string
	ParamLabel() string
	Value() any
	SetValue(value any) error
	Descriptor() map[string]any
}

// Slider is a numeric parameter bounded to [Min, Max].
type Slider struct {
	Name  string
	Label string
	Min   float64
	Max   float64
	Step  float64

	current float64
}

// NewSlider creates a slider starting at value. An empty label
// defaults to the parameter name.
func NewSlider(name string, value, min, max, step float64) *Slider {
	return &Slider{
		Name:    name,
		Label:   name,
		Min:     min,
		Max:     max,
		Step:    step,
		current: value,
	}
}

func (s *Slider) ParamName() string { return s.Name }

func (s *Slider) ParamLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

func (s *Slider) Value() any { return s.current }

func (s *Slider) SetValue(value any) error {
	number, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("param %s: expected number, got %T", s.Name, value)
	}
	if number < s.Min || number > s.Max {
		return fmt.Errorf("param %s: %v out of range [%v, %v]", s.Name, number, s.Min, s.Max)
	}
	s.current = number
	return nil
}

func (s *Slider) Descriptor() map[string]any {
	return map[string]any{
		"type":  "slider",
		"name":  s.Name,
		"label": s.ParamLabel(),
		"value": s.current,
		"min":   s.Min,
		"max":   s.Max,
		"step":  s.Step,
	}
}

// Choice is a parameter restricted to a fixed set of values.
type Choice struct {
	Name    string
	Label   string
	Options []any

	current any
}

// NewChoice creates a choice parameter starting at value.
func NewChoice(name string, value any, options ...any) *Choice {
	return &Choice{
		Name:    name,
		Label:   name,
		Options: options,
		current: value,
	}
}

func (c *Choice) ParamName() string { return c.Name }

func (c *Choice) ParamLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

func (c *Choice) Value() any { return c.current }

func (c *Choice) SetValue(value any) error {
	for _, option := range c.Options {
		if option == value {
			c.current = value
			return nil
		}
	}
	return fmt.Errorf("param %s: %v is not a valid option", c.Name, value)
}

func (c *Choice) Descriptor() map[string]any {
	return map[string]any{
		"type":    "choice",
		"name":    c.Name,
		"label":   c.ParamLabel(),
		"value":   c.current,
		"options": c.Options,
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
