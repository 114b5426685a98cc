package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournament-rounds/handlers"
	"github.com/Dosada05/tournament-rounds/middleware"
	"github.com/Dosada05/tournament-rounds/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
}

func SetupRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/login", h.Auth.LoginHandler)
	router.Post("/auth/register", h.Auth.RegisterHandler)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize(models.RoleMain))
		r.Post("/auth/codes", h.Auth.GenerateCodeHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/standings", h.Tournament.StandingsHandler)
		r.Get("/{tournamentID}/rounds", h.Tournament.ListRoundsHandler)

		// Защищенные маршруты только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleMain))

			r.Post("/", h.Tournament.CreateHandler)
			r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
			r.Post("/{tournamentID}/players", h.Tournament.RegisterPlayerHandler)
			r.Post("/{tournamentID}/start", h.Tournament.StartHandler)
			r.Post("/{tournamentID}/end", h.Tournament.EndHandler)
			r.Post("/{tournamentID}/export", h.Tournament.ExportHandler)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleMain))

		r.Post("/matches/{matchID}/result", h.Match.RecordResultHandler)
		r.Post("/matches/{matchID}/forfeit", h.Match.ForfeitHandler)
	})

	return router
}
