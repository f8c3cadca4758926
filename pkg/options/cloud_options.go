package options

import (
	"errors"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CloudOptions)(nil)

// CloudOptions configures access to the vehicle manufacturer's cloud API.
type CloudOptions struct {
	// BaseURL is the root of the vehicle cloud REST API.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// GeocodeURL is the root of the reverse-geocoding API used for the
	// vehicle address lookup. Empty disables address resolution.
	GeocodeURL string `json:"geocode-url" mapstructure:"geocode-url"`

	// AccessToken is the bearer token obtained by the external login flow.
	AccessToken string `json:"access-token" mapstructure:"access-token"`

	// Timeout bounds every single cloud request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewCloudOptions creates a CloudOptions object with default parameters.
func NewCloudOptions() *CloudOptions {
	return &CloudOptions{
		Timeout: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *CloudOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.BaseURL == "" {
		errs = append(errs, errors.New("cloud base-url is required"))
	} else if _, err := url.Parse(o.BaseURL); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// AddFlags adds flags for CloudOptions to the specified FlagSet.
func (o *CloudOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "cloud.base-url", o.BaseURL, "Base URL of the vehicle cloud API.")
	fs.StringVar(&o.GeocodeURL, "cloud.geocode-url", o.GeocodeURL, "Base URL of the reverse-geocoding API (empty disables address lookup).")
	fs.StringVar(&o.AccessToken, "cloud.access-token", o.AccessToken, "Bearer token for the vehicle cloud API.")
	fs.DurationVar(&o.Timeout, "cloud.timeout", o.Timeout, "Timeout for a single cloud request.")
}
