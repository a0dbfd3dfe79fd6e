package utils

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// LoadConfig reads the optional .env file and binds environment variables
// into viper so flags, env vars and .env resolve through one place.
func LoadConfig(path string) {
	if err := godotenv.Load(path + "/.env"); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("[CONFIG] Failed to load .env file: %v", err)
	}
	viper.AutomaticEnv()
}

// CreateFolder creates every given folder if missing.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}
