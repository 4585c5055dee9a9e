package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/famano/gpt-worker/internal/config"
	"github.com/famano/gpt-worker/internal/state"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults()

	path := configFilePath()
	if path == "" {
		return
	}
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if cfgFile != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFile)
			}
			return
		}
		fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		return
	}
	if viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configFilePath picks the config file: the --config flag, then the
// workspace config in the current directory, then the home config.
// It returns "" when none exists.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}

	candidates := []string{filepath.Join(state.DirName, config.ConfigName+".yaml")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, config.HomeConfigName+".yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
