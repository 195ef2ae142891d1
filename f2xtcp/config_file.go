package f2xtcp

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML representation of a ConnectionConfig.
//
// Example:
//
//	host: 127.0.0.1
//	port: 7300
//	mode: active
//	connect_timeout: 3s
//	write_timeout: 5s
//	max_frame_size: 1048576
//
// Omitted fields keep their defaults.
type FileConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Mode             string        `yaml:"mode"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	AcceptTimeout    time.Duration `yaml:"accept_timeout"`
	CloseConnTimeout time.Duration `yaml:"close_conn_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	SenderQueueSize  int           `yaml:"sender_queue_size"`
	MaxFrameSize     int           `yaml:"max_frame_size"`
}

// Options converts the file settings to ConnOptions.
func (fc *FileConfig) Options() ([]ConnOption, error) {
	var opts []ConnOption

	switch strings.ToLower(fc.Mode) {
	case "", "active":
		opts = append(opts, WithActive())
	case "passive":
		opts = append(opts, WithPassive())
	default:
		return nil, fmt.Errorf("invalid mode %q, expect active or passive", fc.Mode)
	}

	if fc.ConnectTimeout != 0 {
		opts = append(opts, WithConnectTimeout(fc.ConnectTimeout))
	}
	if fc.AcceptTimeout != 0 {
		opts = append(opts, WithAcceptTimeout(fc.AcceptTimeout))
	}
	if fc.CloseConnTimeout != 0 {
		opts = append(opts, WithCloseConnTimeout(fc.CloseConnTimeout))
	}
	if fc.WriteTimeout != 0 {
		opts = append(opts, WithWriteTimeout(fc.WriteTimeout))
	}
	if fc.ReadTimeout != 0 {
		opts = append(opts, WithReadTimeout(fc.ReadTimeout))
	}
	if fc.SenderQueueSize != 0 {
		opts = append(opts, WithSenderQueueSize(fc.SenderQueueSize))
	}
	if fc.MaxFrameSize != 0 {
		opts = append(opts, WithMaxFrameSize(fc.MaxFrameSize))
	}

	return opts, nil
}

// ParseConfig builds a ConnectionConfig from a YAML document. opts are applied after the file settings,
// so they take precedence.
func ParseConfig(data []byte, opts ...ConnOption) (*ConnectionConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}

	fileOpts, err := fc.Options()
	if err != nil {
		return nil, err
	}

	cfg, err := NewConnectionConfig(fc.Host, fc.Port, append(fileOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	return cfg, nil
}

// LoadConfigFile reads a YAML connection config file, see FileConfig.
func LoadConfigFile(path string, opts ...ConnOption) (*ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connection config: %w", err)
	}

	return ParseConfig(data, opts...)
}
