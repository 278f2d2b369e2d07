package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string

	// OpsEmail receives error/warning notifications when the email notifier is enabled.
	OpsEmail         string
	DefaultFromEmail string
	SendgridAPIKey   string
	RollbarToken     string

	Server struct {
		Host            string
		Port            string
		ShutdownTimeout time.Duration
	}

	Database struct {
		Engine     string
		Name       string
		User       string
		Password   string
		Host       string
		Port       string
		DisableTLS bool
	}

	Keycloak struct {
		BaseURL      string
		Realm        string
		ClientID     string
		ClientSecret string
		Username     string
		Password     string
	}

	// Services holds the base URLs of the upstream school microservices.
	Services struct {
		Institution string
		Academic    string
		Enrollment  string
		Student     string
		Timeout     time.Duration
	}
}

func (c *Config) ServerAddress() string   { return net.JoinHostPort(c.Server.Host, c.Server.Port) }
func (c *Config) DatabaseAddress() string { return net.JoinHostPort(c.Database.Host, c.Database.Port) }

// NewConfig loads the app configuration: code defaults first, then an optional
// config/.env.<env> file, then environment variables (prefixed with the current ENV).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("opsEmail", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8080")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "")
	v.SetDefault("dbUser", "")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("keycloakBaseUrl", "http://localhost:8180")
	v.SetDefault("keycloakRealm", "school")
	v.SetDefault("keycloakClientId", "darasa-dashboard")
	v.SetDefault("keycloakClientSecret", "")
	v.SetDefault("keycloakUsername", "")
	v.SetDefault("keycloakPassword", "")

	v.SetDefault("institutionServiceUrl", "http://localhost:8081")
	v.SetDefault("academicServiceUrl", "http://localhost:8082")
	v.SetDefault("enrollmentServiceUrl", "http://localhost:8083")
	v.SetDefault("studentServiceUrl", "http://localhost:8084")
	v.SetDefault("serviceTimeout", 30*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         testMode,
		Env:              env,
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		OpsEmail:         v.GetString("opsEmail"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetString("serverPort")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")

	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetString("dbPort")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")

	conf.Keycloak.BaseURL = v.GetString("keycloakBaseUrl")
	conf.Keycloak.Realm = v.GetString("keycloakRealm")
	conf.Keycloak.ClientID = v.GetString("keycloakClientId")
	conf.Keycloak.ClientSecret = v.GetString("keycloakClientSecret")
	conf.Keycloak.Username = v.GetString("keycloakUsername")
	conf.Keycloak.Password = v.GetString("keycloakPassword")

	conf.Services.Institution = v.GetString("institutionServiceUrl")
	conf.Services.Academic = v.GetString("academicServiceUrl")
	conf.Services.Enrollment = v.GetString("enrollmentServiceUrl")
	conf.Services.Student = v.GetString("studentServiceUrl")
	conf.Services.Timeout = v.GetDuration("serviceTimeout")

	return conf
}
