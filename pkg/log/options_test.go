package log

import "testing"

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr int
	}{
		{"defaults are valid", func(o *Options) {}, 0},
		{"json format", func(o *Options) { o.Format = "json" }, 0},
		{"bad level", func(o *Options) { o.Level = "loud" }, 1},
		{"bad format", func(o *Options) { o.Format = "xml" }, 1},
		{"bad level and format", func(o *Options) { o.Level = "loud"; o.Format = "xml" }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.mutate(opts)
			if got := len(opts.Validate()); got != tt.wantErr {
				t.Errorf("Validate() returned %d errors, want %d", got, tt.wantErr)
			}
		})
	}
}
