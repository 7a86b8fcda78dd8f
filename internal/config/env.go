package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials are read from the process environment, never from the config file.
type Credentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string

	TelegramBotToken string
}

// LoadCredentials loads envFile (if it exists) into the environment and
// reads the credential variables. Variables already set win over the file.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, err
		}
	}
	return Credentials{
		APIKey:            os.Getenv("API_KEY"),
		APIKeySecret:      os.Getenv("API_KEY_SECRET"),
		AccessToken:       os.Getenv("ACCESS_TOKEN"),
		AccessTokenSecret: os.Getenv("ACCESS_TOKEN_SECRET"),
		BearerToken:       os.Getenv("BEARER_TOKEN"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}, nil
}
