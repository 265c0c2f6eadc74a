// Package profile loads the candidate profile.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Profile is the candidate profile. Only the contact fields are typed; the
// rest of the document is kept as-is in Extra and passed to the generator.
type Profile struct {
	Name      string `mapstructure:"name" validate:"required"`
	Specialty string `mapstructure:"specialty"`
	Email     string `mapstructure:"email" validate:"omitempty,email"`
	Phone     string `mapstructure:"phone"`
	Location  string `mapstructure:"location"`
	LinkedIn  string `mapstructure:"linkedin"`
	GitHub    string `mapstructure:"github"`

	Skills     any              `mapstructure:"skills"`
	Experience []map[string]any `mapstructure:"experience"`
	Education  []map[string]any `mapstructure:"education"`

	Extra map[string]any `mapstructure:",remain"`

	fields map[string]any
}

// Error reports an unusable profile.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("profile %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var validate = validator.New()

// Load reads a YAML (or any viper-supported) profile file.
func Load(path string) (*Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, &Error{Path: path, Err: errors.New("path is not configured")}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	p, err := FromMap(v.AllSettings())
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return p, nil
}

// FromMap decodes and validates a profile mapping.
func FromMap(fields map[string]any) (*Profile, error) {
	if len(fields) == 0 {
		return nil, errors.New("profile is empty")
	}

	p := &Profile{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid profile: %s", strings.Join(msgs, ", "))
		}
		return nil, fmt.Errorf("validate profile: %w", err)
	}

	p.fields = fields
	return p, nil
}

// Fields returns the full profile mapping as loaded.
func (p *Profile) Fields() map[string]any {
	if p == nil {
		return nil
	}
	return p.fields
}
