package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Flags are the command flags. Changed flags win over every other source.
	Flags *pflag.FlagSet

	// File is an explicit settings file. It must exist when set.
	File string

	// SearchPaths are the directories searched for .mockan.yaml when File is
	// empty. Defaults to the current directory.
	SearchPaths []string
}

// ConfigError reports an unreadable or invalid settings file or value.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "settings"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load resolves settings from flags, MOCKAN_* environment variables, the
// settings file and the defaults, then validates them.
func Load(opts LoadOptions) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(SettingsFileName)
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = []string{"."}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Path: opts.File, Message: "cannot read settings file", Err: err}
		}
		// No settings file is fine; flags, env and defaults still apply.
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, &ConfigError{Message: "cannot bind flags", Err: err}
		}
	}

	s := NewDefault()
	if err := v.Unmarshal(s); err != nil {
		return nil, &ConfigError{Path: v.ConfigFileUsed(), Message: "invalid settings", Err: err}
	}
	s.SettingsFile = v.ConfigFileUsed()
	s.Sources = sources(v, opts.Flags)

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// sources reports where each key's value came from.
func sources(v *viper.Viper, flags *pflag.FlagSet) map[string]string {
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		switch {
		case flags != nil && flags.Changed(k):
			out[k] = SourceFlag
		case envIsSet(k):
			out[k] = SourceEnv
		case v.InConfig(k):
			out[k] = SourceFile
		default:
			out[k] = SourceDefault
		}
	}
	return out
}

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func envIsSet(key string) bool {
	_, ok := os.LookupEnv(EnvVar(key))
	return ok
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enums.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return &ConfigError{Path: s.SettingsFile, Message: strings.Join(msgs, "; ")}
		}
		return &ConfigError{Path: s.SettingsFile, Message: "invalid settings", Err: err}
	}
	if s.AdminPort != 0 && s.AdminPort == s.Port {
		return &ConfigError{Path: s.SettingsFile, Message: fmt.Sprintf("admin-port %d must differ from port", s.AdminPort)}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	key := settingKey(fe.StructField())
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", key, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	case "ip|hostname":
		return fmt.Sprintf("%s must be an IP address or host name, got %q", key, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %q validation", key, fe.Tag())
	}
}

// settingKey maps a Settings field name to its flag name.
func settingKey(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
