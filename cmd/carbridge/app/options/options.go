package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/carbridge-io/carbridge/internal/bridge"
	"github.com/carbridge-io/carbridge/pkg/log"
	"github.com/carbridge-io/carbridge/pkg/options"
)

// Options aggregates every option group of the carbridge daemon.
type Options struct {
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	CloudOptions  *options.CloudOptions  `json:"cloud" mapstructure:"cloud"`
	BridgeOptions *options.BridgeOptions `json:"bridge" mapstructure:"bridge"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

// NewOptions creates an Options with all defaults applied.
func NewOptions() *Options {
	return &Options{
		MqttOptions:   options.NewMqttOptions(),
		HttpOptions:   options.NewHttpOptions(),
		CloudOptions:  options.NewCloudOptions(),
		BridgeOptions: options.NewBridgeOptions(),
		Log:           log.NewOptions(),
	}
}

// AddFlags registers every group's flags on the given flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.MqttOptions.AddFlags(fs)
	o.HttpOptions.AddFlags(fs)
	o.CloudOptions.AddFlags(fs)
	o.BridgeOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete fills derived values after flag and config parsing.
func (o *Options) Complete() error {
	return nil
}

// Validate checks every option group and joins their errors.
func (o *Options) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.CloudOptions.Validate()...)
	errs = append(errs, o.BridgeOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config builds the application configuration from the validated options.
func (o *Options) Config() (*bridge.Config, error) {
	return &bridge.Config{
		MqttOptions:   o.MqttOptions,
		HttpOptions:   o.HttpOptions,
		CloudOptions:  o.CloudOptions,
		BridgeOptions: o.BridgeOptions,
	}, nil
}
