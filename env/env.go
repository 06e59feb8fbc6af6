package env

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

type AppEnv = uint8

const (
	Dev AppEnv = iota
	Prod
)

type Env struct {
	Addr              string
	AppEnv            AppEnv
	DbPath            string
	OauthClientId     string
	OauthClientSecret string
}

const (
	defaultAddr   = "localhost:3000"
	defaultDbPath = "chess.db"
)

// GetEnv reads configuration from the process environment, falling back to a
// ./.env file for anything missing.
func GetEnv() (*Env, error) {
	oauthClientId, oauthClientIdExists := os.LookupEnv("OAUTH_CLIENT_ID")
	oauthClientSecret, oauthClientSecretExists := os.LookupEnv("OAUTH_CLIENT_SECRET")

	if !oauthClientIdExists || !oauthClientSecretExists {
		// ignore the load error; the lookups below decide whether the
		// configuration is actually complete
		_ = godotenv.Load("./.env")

		oauthClientId, oauthClientIdExists = os.LookupEnv("OAUTH_CLIENT_ID")
		oauthClientSecret, oauthClientSecretExists = os.LookupEnv("OAUTH_CLIENT_SECRET")
		if !oauthClientIdExists || !oauthClientSecretExists {
			return nil, errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET not set and not found in .env")
		}
	}

	addr, exists := os.LookupEnv("CHESS_ADDR")
	if !exists {
		addr = defaultAddr
	}

	dbPath, exists := os.LookupEnv("CHESS_DB_PATH")
	if !exists {
		dbPath = defaultDbPath
	}

	appEnv := Dev
	if appEnvStr, exists := os.LookupEnv("APP_ENV"); exists && appEnvStr == "prod" {
		appEnv = Prod
	}

	return &Env{
		Addr:              addr,
		AppEnv:            appEnv,
		DbPath:            dbPath,
		OauthClientId:     oauthClientId,
		OauthClientSecret: oauthClientSecret,
	}, nil
}
