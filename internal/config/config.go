package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/application.yaml"

type Application struct {
	Host       string     `koanf:"host"`
	Port       int        `koanf:"port"`
	Auth       Auth       `koanf:"auth"`
	FinanceApi FinanceApi `koanf:"financeapi"`
	Draft      Draft      `koanf:"draft"`
	Database   Database   `koanf:"db"`
}

// Auth configures how the current user is resolved. With an empty JwtSecret only the
// X-User-Id header is trusted.
type Auth struct {
	JwtSecret string `koanf:"jwtsecret"`
}

type FinanceApi struct {
	BaseUrl      string        `koanf:"baseurl"`
	Timeout      time.Duration `koanf:"timeout"`
	ClientId     string        `koanf:"clientid"`
	ClientSecret string        `koanf:"clientsecret"`
	TokenUrl     string        `koanf:"tokenurl"`
}

type Draft struct {
	// Backend is one of "postgres", "redis" or "memory".
	Backend string `koanf:"backend"`
	// Secret seals draft values at rest. Empty means values are stored as plain JSON.
	Secret string `koanf:"secret"`
	Redis  Redis  `koanf:"redis"`
}

type Redis struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Pass     string `koanf:"pass"`
	Name     string `koanf:"name"`
	Schema   string `koanf:"schema"`
	SslMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
}

func defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Port: 8181,
		FinanceApi: FinanceApi{
			BaseUrl: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Draft: Draft{
			Backend: "postgres",
			Redis: Redis{
				Addr: "localhost:6379",
				TTL:  30 * 24 * time.Hour,
			},
		},
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "fintrack",
			Pass:     "",
			Name:     "fintrack",
			Schema:   "fintrack",
			SslMode:  "disable",
			MaxConns: 10,
			MinConns: 2,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "FINTRACK_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "FINTRACK_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
