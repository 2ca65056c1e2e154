// Package envstruct fills configuration structs from environment variables.
package envstruct

import (
	"github.com/myrjola/verdict/internal/errors"
	"log/slog"
	"reflect"
	"strconv"
	"time"
)

var (
	ErrEnvNotSet    = errors.NewSentinel("environment variable not set")
	ErrInvalidValue = errors.NewSentinel("invalid value")
)

var durationType = reflect.TypeOf(time.Duration(0))

// Populate fills the struct that v points to with values from lookupEnv, which has the signature of [os.LookupEnv].
//
// Only fields tagged `env:"NAME"` are touched. A field whose variable is unset falls back to its
// `envDefault:"value"` tag and reports ErrEnvNotSet when there is none. Every failing field is reported,
// joined into one error.
//
// Supported field types are string, int, bool, and [time.Duration].
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Struct {
		return errors.Wrap(ErrInvalidValue, "want pointer to struct", slog.Any("v", v))
	}
	target = target.Elem()

	var errs []error
	for i := range target.NumField() {
		sf := target.Type().Field(i)
		name, tagged := sf.Tag.Lookup("env")
		if !tagged {
			continue
		}
		if err := populateField(target.Field(i), sf, name, lookupEnv); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func populateField(field reflect.Value, sf reflect.StructField, name string, lookupEnv func(string) (string, bool)) error {
	attrs := []slog.Attr{slog.String("field", sf.Name), slog.String("env", name)}
	if !field.CanSet() {
		return errors.Wrap(ErrInvalidValue, "field not settable", attrs...)
	}
	raw, ok := lookupEnv(name)
	if !ok {
		if raw, ok = sf.Tag.Lookup("envDefault"); !ok {
			return errors.Wrap(ErrEnvNotSet, "no value or default", attrs...)
		}
	}
	if err := assign(field, raw); err != nil {
		return errors.Wrap(err, "assign field", append(attrs, slog.String("type", field.Type().String()))...)
	}
	return nil
}

func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.Wrap(ErrInvalidValue, "parse duration", slog.String("value", raw))
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive // other kinds are unsupported.
	case reflect.String:
		field.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrap(ErrInvalidValue, "parse int", slog.String("value", raw))
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Wrap(ErrInvalidValue, "parse bool", slog.String("value", raw))
		}
		field.SetBool(b)
	default:
		return errors.Wrap(ErrInvalidValue, "unsupported field type")
	}
	return nil
}
