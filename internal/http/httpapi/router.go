package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"promptarchitect/internal/http/handlers"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	Logger        infra.Logger
	CORSOrigins   []string
	RateLimiter   *middleware.RateLimiter
	Sessions      middleware.SessionResolver
	CountryLookup middleware.CountryLookup
	DefaultLocale string
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware)
	}

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
				middleware.DeviceID,
				middleware.Session(opts.Sessions),
			)

			r.Route("/auth", func(r chi.Router) {
				r.Get("/session", app.CurrentSession)
				r.Post("/signout", app.SignOut)
				r.Get("/{provider}/start", app.SignInStart)
				r.Get("/{provider}/callback", app.SignInCallback)
				r.Post("/{provider}/callback", app.SignInCallback)
			})

			r.Route("/studio", func(r chi.Router) {
				r.Get("/", app.StudioView)
				r.Post("/source", app.LoadSource)
				r.Post("/target", app.LoadTarget)
				r.Put("/prompt", app.SetPrompt)
				r.Post("/attributes/toggle", app.ToggleAttribute)
				r.Put("/resolution", app.SetResolution)
				r.Put("/adjustments", app.SetAdjustments)
				r.Post("/synthesize", app.Synthesize)
				r.Post("/apply", app.ApplyStyle)
				r.Post("/chat", app.Chat)
				r.Post("/publish", app.Publish)
				r.Post("/adopt/{id}", app.Adopt)
				r.Get("/download", app.Download)
				r.Get("/export", app.Export)
			})

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/community", app.Community)
				r.Get("/library", app.Library)
				r.Post("/{id}/like", app.Like)
				r.Patch("/{id}", app.UpdatePrompt)
				r.Delete("/{id}", app.DeletePrompt)
			})

			r.Get("/preferences/theme", app.GetTheme)
			r.Put("/preferences/theme", app.SetTheme)
		})
	})

	return r
}
