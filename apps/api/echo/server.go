package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/news"
	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/program"
	"github.com/trezcool/beasiswa/core/setting"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
	"github.com/trezcool/beasiswa/services/ratelimit"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Limiter    ratelimit.Limiter

		UserSvc      user.Service
		SettingSvc   *setting.Service
		ActivitySvc  *activity.Service
		PortfolioSvc *portfolio.Service
		ProgramSvc   *program.Service
		NewsSvc      *news.Service
		TicketSvc    *ticket.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.Limiter, "Limiter"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.SettingSvc, "SettingSvc"),
		vala.IsNotNil(deps.ActivitySvc, "ActivitySvc"),
		vala.IsNotNil(deps.PortfolioSvc, "PortfolioSvc"),
		vala.IsNotNil(deps.ProgramSvc, "ProgramSvc"),
		vala.IsNotNil(deps.NewsSvc, "NewsSvc"),
		vala.IsNotNil(deps.TicketSvc, "TicketSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(core.HumanSize(conf.Uploads.MaxMultipartFormSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := v1.Group("", middleware.JWTWithConfig(newJWTConfig(conf)), userMiddleware(s.deps.UserSvc))
	admin := authed.Group("/admin", adminMiddleware())
	limited := rateLimitMiddleware(s.deps.Limiter, conf.RateLimit.Auth)

	registerUserAPI(v1, authed, admin, limited, s.deps)
	registerSettingAPI(admin, s.deps)
	registerPortfolioAPI(authed, admin, s.deps)
	registerProgramAPI(authed, admin, s.deps)
	registerNewsAPI(authed, admin, s.deps)
	registerTicketAPI(authed, admin, s.deps)
}

// Start listens on the configured address; failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error the server failed to start or serve with.
func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives SIGINT & SIGTERM, and the signal sent when a shutdown error is caught.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
