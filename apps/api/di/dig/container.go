package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/lord-charles/AMS-TURBO-REPO-sub003/apps/api/echo"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
	emailsvc "github.com/lord-charles/AMS-TURBO-REPO-sub003/services/email"
	logsvc "github.com/lord-charles/AMS-TURBO-REPO-sub003/services/logger"
	notifysvc "github.com/lord-charles/AMS-TURBO-REPO-sub003/services/notify"
	inmemdb "github.com/lord-charles/AMS-TURBO-REPO-sub003/storage/database/inmem"
)

// weeks of mock sessions generated around today
const (
	mockWeeksBack  = 8
	mockWeeksAhead = 4
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stderr, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newValidator returns a validator with the core and attendance validations registered.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}

// setUpDB opens the in-memory store, seeds it with mock data if configured and applies the
// configured thresholds to the stored settings. Thresholds the settings validation rejects
// are a configuration error.
func setUpDB(conf *core.Config, logger core.Logger, validate *validator.Validate, translator ut.Translator) (*inmemdb.DB, error) {
	db, err := inmemdb.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}

	if conf.Attendance.SeedMockData {
		data := attendance.GenerateMockData(time.Now(), conf.Attendance.MockSeed, mockWeeksBack, mockWeeksAhead)
		db.Seed(data)
		logger.Info(fmt.Sprintf(
			"seeded %d courses, %d sessions, %d records",
			len(data.Courses), len(data.Sessions), len(data.Records),
		))
	}

	repo := inmemdb.NewAttendanceRepository(db)
	ctx := context.Background()
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting settings")
	}
	settings.WarningThreshold = conf.Attendance.WarningThreshold
	settings.CriticalThreshold = conf.Attendance.CriticalThreshold
	if err := validate.Struct(settings); err != nil {
		return nil, errors.Wrap(core.TranslateValidationErrors(err, translator), "invalid attendance thresholds")
	}
	if _, err := repo.SaveSettings(ctx, settings); err != nil {
		return nil, errors.Wrap(err, "saving settings")
	}
	return db, nil
}

func newDB(conf *core.Config, loggerParam StoreLoggerParam, validate *validator.Validate, translator ut.Translator) *inmemdb.DB {
	db, err := setUpDB(conf, loggerParam.Logger, validate, translator)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}
	return db
}

// newNotifier sends emails through mailSvc and prints SMS and push messages to stdout.
func newNotifier(mailSvc core.EmailService, logger core.Logger) attendance.Notifier {
	return notifysvc.NewDispatcher(
		mailSvc,
		notifysvc.NewConsoleSender(notifysvc.ChannelSMS, os.Stdout),
		notifysvc.NewConsoleSender(notifysvc.ChannelPush, os.Stdout),
		logger,
	)
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	svc attendance.Service,
	translator ut.Translator,
) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		AttendanceSvc: svc,
		Translator:    translator,
		Registry:      prometheus.NewRegistry(),
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newDB))
	must(c.Provide(inmemdb.NewAttendanceRepository))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newNotifier))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(attendance.OptionsFromConfig))
	must(c.Provide(attendance.NewService))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
