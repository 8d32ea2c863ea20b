package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/leeforge/shrink/env_mode"
	"github.com/leeforge/shrink/logging"
	"github.com/leeforge/shrink/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("SHRINK_CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:     basePath,
		FileName:     "config",
		FileType:     "yaml",
		EnvPrefix:    "SHRINK",
		AllowMissing: true,
	}
}

func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	var opts ConfigOptions
	if len(optsArr) == 0 {
		opts = DefaultConfigOptions()
	} else {
		opts = optsArr[0]
	}

	instance, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
	}, nil
}

func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}
	if instance == nil {
		return fmt.Errorf("target instance is nil")
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target instance must be a non-nil pointer, got %T", instance)
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.seed = reflect.New(rv.Elem().Type()).Elem()
	c.seed.Set(rv.Elem())

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("failed to unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if c.opts.WatchAble && c.instance.ConfigFileUsed() != "" {
		c.watchOnce.Do(func() {
			c.instance.OnConfigChange(c.onConfigChange)
			c.instance.WatchConfig()
		})
	}

	return nil
}

func (c *Config) onConfigChange(e fsnotify.Event) {
	fresh, err := c.reload()
	if err != nil {
		c.logger().Warn("config reload rejected",
			zap.String("file", e.Name),
			zap.Error(err))
		return
	}

	c.logger().Info("config reloaded", zap.String("file", e.Name))
	if c.opts.OnReload != nil {
		c.opts.OnReload(fresh)
	}
	if c.opts.OnChange != nil {
		c.opts.OnChange(e)
	}
}

// reload decodes the current file contents into a new copy of the seed
// value and runs the same defaults and validation as BindWithDefaults.
func (c *Config) reload() (any, error) {
	c.watchMutex.RLock()
	if !c.seed.IsValid() {
		c.watchMutex.RUnlock()
		return nil, fmt.Errorf("config was never bound")
	}
	fresh := reflect.New(c.seed.Type())
	fresh.Elem().Set(c.seed)
	instance := fresh.Interface()
	err := c.instance.Unmarshal(instance)
	c.watchMutex.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaultsAndValidate(instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func (c *Config) logger() logging.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger.Named("config")
	}
	return logging.Named("config")
}

func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}

	if err := c.Bind(instance); err != nil {
		return err
	}

	return applyDefaultsAndValidate(instance)
}

func applyDefaultsAndValidate(instance any) error {
	// Unmarshal may zero nested structs the file only partially covers.
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("failed to set defaults after unmarshal: %w", err)
	}

	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.instance.Set(key, value)
}

// FilesUsed returns the config files merged into this Config, in load order.
func (c *Config) FilesUsed() []string {
	return getConfigFilePaths(c.opts)
}

func CreateConfig(opts ConfigOptions) (*viper.Viper, error) {
	configPaths := getConfigFilePaths(opts)
	if len(configPaths) == 0 && !opts.AllowMissing {
		return nil, fmt.Errorf("no valid configuration files found in path: %s", opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for i, configPath := range configPaths {
		if i == 0 {
			// The base file is the one watched for changes.
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
			}
			continue
		}

		tempV := viper.New()
		tempV.SetConfigFile(configPath)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		if err := v.MergeConfigMap(tempV.AllSettings()); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", configPath, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	applyEnvOverrides(v, opts.EnvPrefix)

	return v, nil
}

// applyEnvOverrides gives environment variables priority over file values:
// editor.max_width -> SHRINK_EDITOR_MAX_WIDTH.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")

	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}

		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func getConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	env := env_mode.Mode()
	fileNames := []string{
		opts.FileName,
		fmt.Sprintf("%s.local", opts.FileName),
		fmt.Sprintf("%s.%s", opts.FileName, env),
		fmt.Sprintf("%s.%s.local", opts.FileName, env),
	}

	switch env {
	case env_mode.DevMode:
		fileNames = append(fileNames, fmt.Sprintf("%s.dev", opts.FileName))
	case env_mode.ProMode:
		fileNames = append(fileNames, fmt.Sprintf("%s.prod", opts.FileName))
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}

// BindEnv makes keys visible to Bind even when no file sets them,
// so environment overrides still apply.
func (c *Config) BindEnv(keys ...string) error {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	for _, key := range keys {
		if err := c.instance.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}
