package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the listener serving health probes, metrics and the
// v1 vehicle API.
type HttpOptions struct {
	// Network is the listener network, usually "tcp".
	Network string `json:"network" mapstructure:"network"`

	// Addr is the bind address and port.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout bounds reading a request and writing its response.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Network: "tcp",
		Addr:    "0.0.0.0:8086",
		Timeout: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags for HttpOptions to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, "http.network", o.Network, "Listener network for the health and API server.")
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Bind address and port for the health and API server.")
	fs.DurationVar(&o.Timeout, "http.timeout", o.Timeout, "Read and write timeout for API requests.")
}
