package config

import (
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/leeforge/shrink/logging"
	"github.com/spf13/viper"
)

type Validator interface {
	Validate() error
}

type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	watchOnce  sync.Once
	watchMutex sync.RWMutex
	// seed is the bound value as it was before the file was applied;
	// reloads start from a copy of it.
	seed reflect.Value
}

type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	WatchAble bool
	OnChange  func(e fsnotify.Event)
	// OnReload receives a freshly decoded, defaulted and validated copy
	// after each accepted change. The instance passed to Bind is never
	// written by a reload.
	OnReload func(instance any)
	// Logger reports rejected reloads. Defaults to the global logger.
	Logger logging.Logger
	// AllowMissing starts from an empty config when no file is found.
	AllowMissing bool
}
