package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AppEnv         string
	Version        string
	AllowedOrigins []string
}

type Handlers struct {
	Payroll    PayrollHandler
	EAForm     EAFormHandler
	Leave      LeaveHandler
	Attendance AttendanceHandler
	Claim      ClaimHandler
	Company    CompanyHandler
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.AppEnv == "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hrms-payroll"),
		slog.String("version", opts.Version),
		slog.String("env", opts.AppEnv),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	authenticated := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
		r.Use(middleware.RequireCompany)
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/payroll", func(r chi.Router) {
			r.Route("/runs", func(r chi.Router) {
				// Event streams authenticate with a topic-bound ?token=
				r.Get("/{id}/events", h.Payroll.Events)

				r.Group(func(r chi.Router) {
					authenticated(r)
					r.Use(middleware.RequireManager)

					r.Post("/", h.Payroll.CreateRun)
					r.Get("/{id}", h.Payroll.GetRun)
					r.Post("/{id}/generate", h.Payroll.GenerateRun)
					r.Post("/{id}/approve", h.Payroll.ApproveRun)
					r.Post("/{id}/lock", h.Payroll.LockRun)
					r.Post("/{id}/pay", h.Payroll.PayRun)
					r.Post("/{id}/reopen", h.Payroll.ReopenRun)
					r.Post("/{id}/cancel", h.Payroll.CancelRun)
					r.Post("/{id}/relink", h.Payroll.RelinkRun)
					r.Get("/{id}/items", h.Payroll.ListItems)
					r.Post("/{id}/events/token", h.Payroll.StreamToken)
				})
			})

			r.Group(func(r chi.Router) {
				authenticated(r)

				r.With(middleware.RequireManager).Get("/items/{id}/verify", h.Payroll.VerifyItem)
				r.Get("/inputs/{employee_id}/{year}/{month}", h.Payroll.GetInputs)
				r.With(middleware.RequireManager).Put("/inputs/{employee_id}/{year}/{month}", h.Payroll.UpsertInputs)
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Route("/ea-forms", func(r chi.Router) {
				r.With(middleware.RequireManager).Post("/generate/{year}", h.EAForm.Generate)
				r.Get("/{year}/{employee_id}", h.EAForm.Get)
			})

			r.Route("/leave", func(r chi.Router) {
				r.With(middleware.RequireManager).Post("/balances/initialize", h.Leave.InitializeBalances)
				r.Route("/requests", func(r chi.Router) {
					r.Post("/", h.Leave.CreateRequest)
					r.Post("/{id}/cancel", h.Leave.CancelRequest)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireManager)
						r.Post("/{id}/approve", h.Leave.ApproveRequest)
						r.Post("/{id}/reject", h.Leave.RejectRequest)
					})
				})
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/clock", h.Attendance.Clock)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Post("/records/{id}/ot/approve", h.Attendance.ApproveOvertime)
					r.Post("/records/{id}/ot/reject", h.Attendance.RejectOvertime)
				})
			})

			r.Post("/claims/{id}/verify", h.Claim.Verify)

			r.Route("/companies/my/settings", func(r chi.Router) {
				r.Get("/", h.Company.GetSettings)
				r.With(middleware.RequireManager).Patch("/", h.Company.UpdateSettings)
			})
		})
	})
	return r
}
