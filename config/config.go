// Package config loads SSAO settings and override volumes from TOML or
// YAML files.
//
// A file has up to three sections. Missing keys keep their defaults:
//
//	[settings]
//	downsample = 2
//	radius = 0.5
//	quality = "MEDIUM"
//
//	[blur]
//	horizontal = 0.3
//	vertical = 0.3
//
//	[volumes.ssao]
//	active = true
//	radius = { value = 1.5, override = true }
//
// Load validates every value; out-of-range fields are an error rather than
// being clamped. Watch keeps the volumes of a file current as it is edited.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/ssao"
)

// Format is a config file encoding.
type Format uint8

// Supported formats.
const (
	FormatTOML Format = iota + 1
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ErrUnknownFormat is returned for files whose extension is not .toml,
// .yaml or .yml.
var ErrUnknownFormat = errors.New("config: unknown file format")

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// File is the decoded content of a config file.
type File struct {
	Settings ssao.Settings     `toml:"settings" yaml:"settings"`
	Blur     ssao.BlurSettings `toml:"blur" yaml:"blur"`

	// Volumes maps effect names to their override scope.
	Volumes map[string]*ssao.Volume `toml:"volumes" yaml:"volumes"`
}

// Default returns a File holding the default settings and no volumes.
func Default() *File {
	return &File{
		Settings: ssao.DefaultSettings(),
		Blur:     ssao.DefaultBlurSettings(),
	}
}

// Validate reports the first out-of-range value.
func (f *File) Validate() error {
	if err := f.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := f.Blur.Validate(); err != nil {
		return fmt.Errorf("blur: %w", err)
	}
	for name, v := range f.Volumes {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("volumes.%s: %w", name, err)
		}
	}
	return nil
}

// Volume implements ssao.VolumeSource.
func (f *File) Volume(effect string) (*ssao.Volume, bool) {
	v, ok := f.Volumes[effect]
	return v, ok && v != nil
}

// Options returns effect options applying the file's settings, blur
// settings and volumes.
func (f *File) Options() []ssao.Option {
	return []ssao.Option{
		ssao.WithSettings(f.Settings),
		ssao.WithBlurSettings(f.Blur),
		ssao.WithVolumes(f),
	}
}

// decoder is the common shape of the TOML and YAML decoders.
type decoder interface {
	Decode(v any) error
}

func newDecoder(r io.Reader, format Format) (decoder, error) {
	switch format {
	case FormatTOML:
		return toml.NewDecoder(r).DisallowUnknownFields(), nil
	case FormatYAML:
		d := yaml.NewDecoder(r)
		d.KnownFields(true)
		return d, nil
	default:
		return nil, fmt.Errorf("%v: %w", format, ErrUnknownFormat)
	}
}

// Decode reads a file in the given format and validates it. Unknown keys
// are an error.
func Decode(r io.Reader, format Format) (*File, error) {
	dec, err := newDecoder(r, format)
	if err != nil {
		return nil, err
	}
	f := Default()
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode %v: %w", format, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return f, nil
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer fp.Close()

	f, err := Decode(fp, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
