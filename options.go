package ssao

import "log/slog"

// Option configures an Effect during creation.
//
// Example:
//
//	fx := ssao.New(device,
//	    ssao.WithSettings(ssao.Settings{Downsample: 2, Radius: 0.5, Quality: ssao.QualityMedium, Intensity: 1, Bias: 0.2, MaxDepth: 10}),
//	    ssao.WithVolumes(volumes),
//	)
type Option func(*options)

// options holds optional configuration for Effect creation.
type options struct {
	logger   *slog.Logger
	settings *Settings
	blur     *BlurSettings
	volumes  VolumeSource
	name     string
}

// defaultOptions returns the default effect options. Nil settings resolve
// to DefaultSettings and DefaultBlurSettings.
func defaultOptions() options {
	return options{
		name: EffectName,
	}
}

// WithLogger sets the logger of the effect. Without it the effect logs
// through the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSettings sets the occlusion settings. Out-of-range fields are clamped.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = &s
	}
}

// WithBlurSettings sets the blur strengths. Out-of-range fields are clamped.
func WithBlurSettings(b BlurSettings) Option {
	return func(o *options) {
		o.blur = &b
	}
}

// WithVolumes sets the source of runtime override volumes. It is queried
// once per frame under the effect's name.
//
// Example:
//
//	w, err := config.Watch("volumes.toml")
//	fx := ssao.New(device, ssao.WithVolumes(w))
func WithVolumes(src VolumeSource) Option {
	return func(o *options) {
		o.volumes = src
	}
}

// WithEffectName changes the key used for volume lookups and labels.
// Empty names are ignored.
func WithEffectName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}
