package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/carbridge-io/carbridge/internal/bridge"
	"github.com/carbridge-io/carbridge/pkg/log"
	pkgoptions "github.com/carbridge-io/carbridge/pkg/options"
)

// loadConfigFile reads the YAML config file and applies its values to every
// flag the user did not set explicitly. Flag names double as config keys
// ("mqtt.broker" is `mqtt: {broker: ...}` in YAML), so no extra binding table
// is needed. Returns the viper instance for the reload watcher, or nil when
// no file was given.
func loadConfigFile(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	if configFile == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, configValue(v.Get(f.Name))); err != nil {
			errs = append(errs, fmt.Errorf("config key %s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return v, nil
}

// configValue renders a config value in the form pflag parses. Slices become
// comma-separated lists.
func configValue(val any) string {
	if items, ok := val.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", val)
}

// watchBridgeOptions reloads the bridge option group when the config file
// changes. Only the polling schedule is applied at runtime; connection
// settings and the VIN set need a restart.
func watchBridgeOptions(v *viper.Viper, srv *bridge.BridgeServer) {
	v.OnConfigChange(func(event fsnotify.Event) {
		log.Info("Config file changed, reloading bridge options", "file", event.Name)

		opts := pkgoptions.NewBridgeOptions()
		if err := v.UnmarshalKey("bridge", opts); err != nil {
			log.Error(err, "Ignoring config change: unmarshal failed")
			return
		}
		// The VIN set is fixed at startup; a placeholder satisfies the
		// group validation without suggesting VINs reload.
		if len(opts.VINs) == 0 {
			opts.VINs = []string{"-"}
		}
		if errs := opts.Validate(); len(errs) > 0 {
			log.Error(errors.Join(errs...), "Ignoring config change: validation failed")
			return
		}

		srv.ApplyBridgeOptions(opts)
	})
	v.WatchConfig()
}
