package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string // DEV (local; default), TEST, QA, PROD
	Build    string
	Debug    bool
	TestMode bool
	AppName  string

	DefaultFromEmail mail.Address
	SendgridApiKey   string
	RollbarToken     string

	Student Identity
	Advisor mail.Address // copied on attendance warnings when set

	Server struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	Attendance struct {
		WarningThreshold   int
		CriticalThreshold  int
		MinRequired        float64
		ExcuseWindowDays   int
		ExcuseOffice       mail.Address // blind-copied on submitted excuses when set
		ConfirmationWindow time.Duration
		MaxDocumentSize    int64
		SeedMockData       bool
		MockSeed           int64
	}

	// simulated remote calls
	Latency struct {
		Delay       time.Duration
		FailureRate float64
	}
}

func newViper(env string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Student Portal")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("student.id", "STU-2024-0001")
	v.SetDefault("student.username", "student")
	v.SetDefault("student.email", "student@localhost")
	v.SetDefault("student.advisorEmail", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("attendance.warningThreshold", 75)
	v.SetDefault("attendance.criticalThreshold", 65)
	v.SetDefault("attendance.minRequired", 80.0)
	v.SetDefault("attendance.excuseWindowDays", 14)
	v.SetDefault("attendance.excuseOfficeEmail", "")
	v.SetDefault("attendance.confirmationWindow", 3*time.Second)
	v.SetDefault("attendance.maxDocumentSize", int64(5<<20)) // 5MB
	v.SetDefault("attendance.seedMockData", true)
	v.SetDefault("attendance.mockSeed", int64(42))

	v.SetDefault("latency.delay", 800*time.Millisecond)
	v.SetDefault("latency.failureRate", 0.0)

	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("latency.delay", time.Duration(0))
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewConfig loads the configuration for the current ENV.
// An optional `config/.env.<env>` file is loaded first; real environment variables win.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	v := newViper(env)
	conf := &Config{
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Student: Identity{
			ID:       v.GetString("student.id"),
			Username: v.GetString("student.username"),
			Email:    v.GetString("student.email"),
		},
	}
	conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: v.GetString("defaultFromEmail")}
	conf.Advisor = mail.Address{Name: "Academic Advisor", Address: v.GetString("student.advisorEmail")}

	conf.Server.Address = v.GetString("server.address")
	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.DisableReqLogs = v.GetBool("server.disableReqLogs")

	conf.Attendance.WarningThreshold = v.GetInt("attendance.warningThreshold")
	conf.Attendance.CriticalThreshold = v.GetInt("attendance.criticalThreshold")
	conf.Attendance.MinRequired = v.GetFloat64("attendance.minRequired")
	conf.Attendance.ExcuseWindowDays = v.GetInt("attendance.excuseWindowDays")
	conf.Attendance.ExcuseOffice = mail.Address{Name: "Excuse Office", Address: v.GetString("attendance.excuseOfficeEmail")}
	conf.Attendance.ConfirmationWindow = v.GetDuration("attendance.confirmationWindow")
	conf.Attendance.MaxDocumentSize = v.GetInt64("attendance.maxDocumentSize")
	conf.Attendance.SeedMockData = v.GetBool("attendance.seedMockData")
	conf.Attendance.MockSeed = v.GetInt64("attendance.mockSeed")

	conf.Latency.Delay = v.GetDuration("latency.delay")
	conf.Latency.FailureRate = v.GetFloat64("latency.failureRate")
	return conf
}

// NewTestConfig returns the TEST configuration regardless of ENV.
func NewTestConfig() *Config {
	prev, had := os.LookupEnv("ENV")
	_ = os.Setenv("ENV", "TEST")
	defer func() {
		if had {
			_ = os.Setenv("ENV", prev)
		} else {
			_ = os.Unsetenv("ENV")
		}
	}()
	return NewConfig()
}
